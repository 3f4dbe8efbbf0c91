package keeper

import (
	"context"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/paw-chain/pawdex/x/dex/types"
)

// DepositLiquidity adds tokenA and tokenB to their pair and mints shares to the
// recipient. The first deposit into an empty ledger takes the desired amounts as
// given; later deposits are matched to the current reserve ratio.
func (k Keeper) DepositLiquidity(ctx context.Context, req types.DepositRequest) (types.DepositResult, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	if err := k.checkDeadline(ctx, req.Deadline); err != nil {
		k.recordFailure(sdkCtx, OpDeposit, err)
		return types.DepositResult{}, err
	}

	var result types.DepositResult
	err := k.executeAtomic(ctx, OpDeposit, func(ctx sdk.Context) error {
		if err := req.ValidateBasic(); err != nil {
			return err
		}
		pair, err := types.NewTokenPair(req.TokenA, req.TokenB)
		if err != nil {
			return err
		}

		reserves, err := k.GetReserves(ctx, pair)
		if err != nil {
			return err
		}
		reserveA, reserveB := pair.Orient(req.TokenA, reserves)

		totalShares, err := k.TotalShares(ctx)
		if err != nil {
			return err
		}
		bootstrap := totalShares.IsZero()

		amountA, amountB := req.AmountADesired, req.AmountBDesired
		if !bootstrap {
			if reserveA.IsZero() || reserveB.IsZero() {
				return types.ErrNoLiquidity.Wrapf("pair %s has no reserves while %s shares are outstanding", pair, totalShares)
			}
			amountA, amountB, err = optimalDeposit(req, reserveA, reserveB)
			if err != nil {
				return err
			}
		}

		// Floors hold for bootstrap deposits too.
		if amountA.LT(req.AmountAMin) {
			return types.ErrInsufficientAmountA.Wrapf("%s < %s", amountA, req.AmountAMin)
		}
		if amountB.LT(req.AmountBMin) {
			return types.ErrInsufficientAmountB.Wrapf("%s < %s", amountB, req.AmountBMin)
		}

		if err := k.pullToken(ctx, req.TokenA, req.Provider, amountA); err != nil {
			return err
		}
		if err := k.pullToken(ctx, req.TokenB, req.Provider, amountB); err != nil {
			return err
		}

		shares, locked := math.ZeroInt(), math.ZeroInt()
		if bootstrap {
			shares, locked, err = types.BootstrapShares(k.policy, amountA, amountB)
			if err != nil {
				return err
			}
		} else {
			shares, err = types.ProportionalShares(amountA, amountB, reserveA, reserveB, totalShares)
			if err != nil {
				return err
			}
			if shares.IsZero() {
				return types.ErrInsufficientLiquidityMinted.Wrapf("deposit %s/%s into %s", amountA, amountB, pair)
			}
		}

		deltaLow, deltaHigh := pair.Deltas(req.TokenA, amountA, amountB)
		if err := k.ApplyReserveDelta(ctx, pair, deltaLow, deltaHigh); err != nil {
			return err
		}

		if locked.IsPositive() {
			if err := k.Mint(ctx, types.LockedSharesAddress, locked); err != nil {
				return err
			}
		}
		if err := k.Mint(ctx, req.Recipient, shares); err != nil {
			return err
		}

		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeDepositLiquidity,
				sdk.NewAttribute(types.AttributeKeyPair, pair.String()),
				sdk.NewAttribute(types.AttributeKeyProvider, req.Provider.String()),
				sdk.NewAttribute(types.AttributeKeyRecipient, req.Recipient.String()),
				sdk.NewAttribute(types.AttributeKeyTokenA, req.TokenA),
				sdk.NewAttribute(types.AttributeKeyTokenB, req.TokenB),
				sdk.NewAttribute(types.AttributeKeyAmountA, amountA.String()),
				sdk.NewAttribute(types.AttributeKeyAmountB, amountB.String()),
				sdk.NewAttribute(types.AttributeKeyShares, shares.String()),
			),
		)

		k.metrics.LiquidityAdded.WithLabelValues(pair.String(), req.TokenA).Add(approxFloat(amountA))
		k.metrics.LiquidityAdded.WithLabelValues(pair.String(), req.TokenB).Add(approxFloat(amountB))

		k.Logger(ctx).Info("liquidity deposited",
			"pair", pair.String(),
			"provider", req.Provider.String(),
			"amount_a", amountA.String(),
			"amount_b", amountB.String(),
			"shares", shares.String(),
			"bootstrap", bootstrap,
		)

		result = types.DepositResult{AmountA: amountA, AmountB: amountB, Shares: shares}
		return nil
	})
	if err != nil {
		return types.DepositResult{}, err
	}
	return result, nil
}

// optimalDeposit matches the desired amounts to the reserve ratio, preferring
// to keep all of tokenA.
func optimalDeposit(req types.DepositRequest, reserveA, reserveB math.Int) (math.Int, math.Int, error) {
	amountBOptimal, err := types.OptimalAmount(req.AmountADesired, reserveA, reserveB)
	if err != nil {
		return math.Int{}, math.Int{}, err
	}
	if amountBOptimal.LTE(req.AmountBDesired) {
		if amountBOptimal.LT(req.AmountBMin) {
			return math.Int{}, math.Int{}, types.ErrInsufficientAmountB.Wrapf("optimal %s < min %s", amountBOptimal, req.AmountBMin)
		}
		return req.AmountADesired, amountBOptimal, nil
	}

	amountAOptimal, err := types.OptimalAmount(req.AmountBDesired, reserveB, reserveA)
	if err != nil {
		return math.Int{}, math.Int{}, err
	}
	if amountAOptimal.GT(req.AmountADesired) {
		// Unreachable with consistent reserves: b > bDesired implies a' <= aDesired.
		return math.Int{}, math.Int{}, types.ErrInsufficientAmountA.Wrapf("optimal %s > desired %s", amountAOptimal, req.AmountADesired)
	}
	if amountAOptimal.LT(req.AmountAMin) {
		return math.Int{}, math.Int{}, types.ErrInsufficientAmountA.Wrapf("optimal %s < min %s", amountAOptimal, req.AmountAMin)
	}
	return amountAOptimal, req.AmountBDesired, nil
}

// WithdrawLiquidity burns shares and pays out the proportional part of the pair
// reserves to the recipient.
func (k Keeper) WithdrawLiquidity(ctx context.Context, req types.WithdrawRequest) (types.WithdrawResult, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	if err := k.checkDeadline(ctx, req.Deadline); err != nil {
		k.recordFailure(sdkCtx, OpWithdraw, err)
		return types.WithdrawResult{}, err
	}

	var result types.WithdrawResult
	err := k.executeAtomic(ctx, OpWithdraw, func(ctx sdk.Context) error {
		if err := req.ValidateBasic(); err != nil {
			return err
		}
		pair, err := types.NewTokenPair(req.TokenA, req.TokenB)
		if err != nil {
			return err
		}

		if req.Shares.IsZero() {
			return types.ErrInvalidLiquidity.Wrap("cannot burn zero shares")
		}
		balance, err := k.BalanceOf(ctx, req.Provider)
		if err != nil {
			return err
		}
		if req.Shares.GT(balance) {
			return types.ErrInvalidLiquidity.Wrapf("burning %s exceeds balance %s", req.Shares, balance)
		}

		reserves, err := k.GetReserves(ctx, pair)
		if err != nil {
			return err
		}
		reserveA, reserveB := pair.Orient(req.TokenA, reserves)
		if reserveA.IsZero() || reserveB.IsZero() {
			return types.ErrNoLiquidity.Wrapf("pair %s has no reserves to withdraw", pair)
		}

		totalShares, err := k.TotalShares(ctx)
		if err != nil {
			return err
		}
		amountA, err := types.WithdrawAmount(req.Shares, reserveA, totalShares)
		if err != nil {
			return err
		}
		amountB, err := types.WithdrawAmount(req.Shares, reserveB, totalShares)
		if err != nil {
			return err
		}

		if err := k.Burn(ctx, req.Provider, req.Shares); err != nil {
			return err
		}

		if amountA.LT(req.AmountAMin) {
			return types.ErrInsufficientAmountA.Wrapf("%s < %s", amountA, req.AmountAMin)
		}
		if amountB.LT(req.AmountBMin) {
			return types.ErrInsufficientAmountB.Wrapf("%s < %s", amountB, req.AmountBMin)
		}

		deltaLow, deltaHigh := pair.Deltas(req.TokenA, amountA.Neg(), amountB.Neg())
		if err := k.ApplyReserveDelta(ctx, pair, deltaLow, deltaHigh); err != nil {
			return err
		}
		if req.Shares.Equal(totalShares) {
			if err := k.requireNoReserves(ctx); err != nil {
				return err
			}
		}

		if err := k.pushToken(ctx, req.TokenA, req.Recipient, amountA); err != nil {
			return err
		}
		if err := k.pushToken(ctx, req.TokenB, req.Recipient, amountB); err != nil {
			return err
		}

		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeWithdrawLiquidity,
				sdk.NewAttribute(types.AttributeKeyPair, pair.String()),
				sdk.NewAttribute(types.AttributeKeyProvider, req.Provider.String()),
				sdk.NewAttribute(types.AttributeKeyRecipient, req.Recipient.String()),
				sdk.NewAttribute(types.AttributeKeyTokenA, req.TokenA),
				sdk.NewAttribute(types.AttributeKeyTokenB, req.TokenB),
				sdk.NewAttribute(types.AttributeKeyAmountA, amountA.String()),
				sdk.NewAttribute(types.AttributeKeyAmountB, amountB.String()),
				sdk.NewAttribute(types.AttributeKeyShares, req.Shares.String()),
			),
		)

		k.metrics.LiquidityRemoved.WithLabelValues(pair.String(), req.TokenA).Add(approxFloat(amountA))
		k.metrics.LiquidityRemoved.WithLabelValues(pair.String(), req.TokenB).Add(approxFloat(amountB))

		k.Logger(ctx).Info("liquidity withdrawn",
			"pair", pair.String(),
			"provider", req.Provider.String(),
			"amount_a", amountA.String(),
			"amount_b", amountB.String(),
			"shares", req.Shares.String(),
		)

		result = types.WithdrawResult{AmountA: amountA, AmountB: amountB}
		return nil
	})
	if err != nil {
		return types.WithdrawResult{}, err
	}
	return result, nil
}

// requireNoReserves fails while any pair still holds reserves. Burning the last
// shares must not leave reserves nobody can claim.
func (k Keeper) requireNoReserves(ctx context.Context) error {
	var held *types.PairReserves
	err := k.IterateReserves(ctx, func(pair types.TokenPair, reserves types.Reserves) bool {
		if reserves.Low.IsPositive() || reserves.High.IsPositive() {
			held = &types.PairReserves{Pair: pair, Reserves: reserves}
			return true
		}
		return false
	})
	if err != nil {
		return err
	}
	if held != nil {
		return types.ErrNoLiquidity.Wrapf("burning every share would strand %s reserves %s/%s", held.Pair, held.Reserves.Low, held.Reserves.High)
	}
	return nil
}
