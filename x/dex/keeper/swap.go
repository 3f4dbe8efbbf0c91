package keeper

import (
	"context"
	"time"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/paw-chain/pawdex/x/dex/types"
)

// ComputeOutput prices amountIn against the given reserves under the keeper's policy.
func (k Keeper) ComputeOutput(amountIn, reserveIn, reserveOut math.Int) (math.Int, error) {
	return types.ComputeOutput(k.policy, amountIn, reserveIn, reserveOut)
}

// QuoteSwap returns the output of selling amountIn of tokenIn for tokenOut at
// the current reserves without changing any state.
func (k Keeper) QuoteSwap(ctx context.Context, amountIn math.Int, tokenIn, tokenOut string) (math.Int, error) {
	pair, err := types.NewTokenPair(tokenIn, tokenOut)
	if err != nil {
		return math.Int{}, err
	}
	reserves, err := k.GetReserves(ctx, pair)
	if err != nil {
		return math.Int{}, err
	}
	reserveIn, reserveOut := pair.Orient(tokenIn, reserves)
	return k.ComputeOutput(amountIn, reserveIn, reserveOut)
}

// SwapExact sells exactly req.AmountIn of the first path token for at least
// req.AmountOutMin of the second.
func (k Keeper) SwapExact(ctx context.Context, req types.SwapRequest) (types.SwapResult, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	start := time.Now()

	if err := k.checkDeadline(ctx, req.Deadline); err != nil {
		k.recordFailure(sdkCtx, OpSwap, err)
		return types.SwapResult{}, err
	}

	var result types.SwapResult
	err := k.executeAtomic(ctx, OpSwap, func(ctx sdk.Context) error {
		if err := req.ValidateBasic(); err != nil {
			return err
		}
		tokenIn, tokenOut := req.TokenIn(), req.TokenOut()
		pair, err := types.NewTokenPair(tokenIn, tokenOut)
		if err != nil {
			return err
		}

		reserves, err := k.GetReserves(ctx, pair)
		if err != nil {
			return err
		}
		reserveIn, reserveOut := pair.Orient(tokenIn, reserves)

		amountOut, err := k.ComputeOutput(req.AmountIn, reserveIn, reserveOut)
		if err != nil {
			return err
		}
		if amountOut.LT(req.AmountOutMin) {
			return types.ErrInsufficientOutputAmount.Wrapf("%s < %s", amountOut, req.AmountOutMin)
		}

		if err := k.pullToken(ctx, tokenIn, req.Trader, req.AmountIn); err != nil {
			return err
		}
		if err := k.pushToken(ctx, tokenOut, req.Recipient, amountOut); err != nil {
			return err
		}

		deltaLow, deltaHigh := pair.Deltas(tokenIn, req.AmountIn, amountOut.Neg())
		if err := k.ApplyReserveDelta(ctx, pair, deltaLow, deltaHigh); err != nil {
			return err
		}
		if err := k.checkProductDidNotShrink(ctx, pair, reserves); err != nil {
			return err
		}

		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeSwap,
				sdk.NewAttribute(types.AttributeKeyPair, pair.String()),
				sdk.NewAttribute(types.AttributeKeyTrader, req.Trader.String()),
				sdk.NewAttribute(types.AttributeKeyRecipient, req.Recipient.String()),
				sdk.NewAttribute(types.AttributeKeyTokenIn, tokenIn),
				sdk.NewAttribute(types.AttributeKeyTokenOut, tokenOut),
				sdk.NewAttribute(types.AttributeKeyAmountIn, req.AmountIn.String()),
				sdk.NewAttribute(types.AttributeKeyAmountOut, amountOut.String()),
			),
		)

		k.metrics.SwapsTotal.WithLabelValues(tokenIn, tokenOut).Inc()
		k.metrics.SwapVolume.WithLabelValues(tokenIn).Add(approxFloat(req.AmountIn))

		k.Logger(ctx).Info("swap executed",
			"pair", pair.String(),
			"trader", req.Trader.String(),
			"token_in", tokenIn,
			"amount_in", req.AmountIn.String(),
			"token_out", tokenOut,
			"amount_out", amountOut.String(),
		)

		result = types.SwapResult{AmountIn: req.AmountIn, AmountOut: amountOut}
		return nil
	})
	k.metrics.SwapLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return types.SwapResult{}, err
	}
	return result, nil
}

// checkProductDidNotShrink compares reserveLow*reserveHigh before and after a swap.
func (k Keeper) checkProductDidNotShrink(ctx context.Context, pair types.TokenPair, before types.Reserves) error {
	after, err := k.GetReserves(ctx, pair)
	if err != nil {
		return err
	}
	kBefore, err := before.Product()
	if err != nil {
		return err
	}
	kAfter, err := after.Product()
	if err != nil {
		return err
	}
	if kAfter.LT(kBefore) {
		k.Logger(ctx).Error("constant product decreased", "pair", pair.String(), "before", kBefore.String(), "after", kAfter.String())
		return types.ErrInvariantViolation.Wrapf("%s: k %s -> %s", pair, kBefore, kAfter)
	}
	return nil
}

// GetPrice returns the price of one unit of tokenA in tokenB with
// types.PriceDecimals fractional digits.
func (k Keeper) GetPrice(ctx context.Context, tokenA, tokenB string) (math.Int, error) {
	pair, err := types.NewTokenPair(tokenA, tokenB)
	if err != nil {
		return math.Int{}, err
	}
	reserves, err := k.GetReserves(ctx, pair)
	if err != nil {
		return math.Int{}, err
	}
	reserveA, reserveB := pair.Orient(tokenA, reserves)
	return types.ComputePrice(reserveA, reserveB)
}
