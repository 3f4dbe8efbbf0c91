package keeper

import (
	"context"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/paw-chain/pawdex/x/dex/types"
)

// StrayBalance returns how much of denom the pool holds beyond the sum of all
// reserves in that denom. Only this excess can be recovered.
func (k Keeper) StrayBalance(ctx context.Context, denom string) (math.Int, error) {
	token, err := k.tokens.Token(denom)
	if err != nil {
		return math.Int{}, err
	}
	reader, ok := token.(types.CustodyReader)
	if !ok {
		return math.Int{}, types.ErrInvalidToken.Wrapf("adapter for %s cannot report custody", denom)
	}
	custody, err := reader.CustodyBalance(ctx)
	if err != nil {
		return math.Int{}, err
	}

	reserved := math.ZeroInt()
	var sumErr error
	err = k.IterateReserves(ctx, func(pair types.TokenPair, reserves types.Reserves) bool {
		if !pair.Contains(denom) {
			return false
		}
		own, _ := pair.Orient(denom, reserves)
		reserved, sumErr = reserved.SafeAdd(own)
		return sumErr != nil
	})
	if err != nil {
		return math.Int{}, err
	}
	if sumErr != nil {
		return math.Int{}, types.ErrOverflow.Wrapf("reserves of %s", denom)
	}

	if custody.LT(reserved) {
		k.Logger(ctx).Error("custody below reserves", "denom", denom, "custody", custody.String(), "reserved", reserved.String())
		return math.ZeroInt(), nil
	}
	return custody.Sub(reserved), nil
}

// RecoverTokens sends amount of stray denom to the given address. Only the
// keeper authority may call it, and never for more than StrayBalance.
func (k Keeper) RecoverTokens(ctx context.Context, authority string, denom string, to sdk.AccAddress, amount math.Int) error {
	if authority != k.authority {
		err := types.ErrUnauthorized.Wrapf("expected %s, got %s", k.authority, authority)
		k.recordFailure(sdk.UnwrapSDKContext(ctx), OpRecover, err)
		return err
	}

	return k.executeAtomic(ctx, OpRecover, func(ctx sdk.Context) error {
		if amount.IsNil() || !amount.IsPositive() {
			return types.ErrInvalidAmount.Wrapf("recover amount %s", amount)
		}
		if err := validateHolder("to", to); err != nil {
			return err
		}
		stray, err := k.StrayBalance(ctx, denom)
		if err != nil {
			return err
		}
		if amount.GT(stray) {
			return types.ErrInsufficientLiquidity.Wrapf("only %s%s is recoverable, requested %s", stray, denom, amount)
		}
		if err := k.pushToken(ctx, denom, to, amount); err != nil {
			return err
		}

		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeRecoverTokens,
				sdk.NewAttribute(types.AttributeKeyDenom, denom),
				sdk.NewAttribute(types.AttributeKeyTo, to.String()),
				sdk.NewAttribute(types.AttributeKeyAmount, amount.String()),
			),
		)
		k.Logger(ctx).Info("stray tokens recovered", "denom", denom, "to", to.String(), "amount", amount.String())
		return nil
	})
}

// SweepStray recovers the whole stray balance of denom and returns the amount moved.
func (k Keeper) SweepStray(ctx context.Context, authority string, denom string, to sdk.AccAddress) (math.Int, error) {
	if authority != k.authority {
		return math.Int{}, types.ErrUnauthorized.Wrapf("expected %s, got %s", k.authority, authority)
	}
	stray, err := k.StrayBalance(ctx, denom)
	if err != nil {
		return math.Int{}, err
	}
	if stray.IsZero() {
		return stray, nil
	}
	if err := k.RecoverTokens(ctx, authority, denom, to, stray); err != nil {
		return math.Int{}, err
	}
	return stray, nil
}
