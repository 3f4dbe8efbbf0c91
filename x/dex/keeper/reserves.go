package keeper

import (
	"context"

	"cosmossdk.io/math"
	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/paw-chain/pawdex/x/dex/types"
)

// GetReserves returns the reserves of a canonical pair. A pair that was never
// written reads as zero on both sides.
func (k Keeper) GetReserves(ctx context.Context, pair types.TokenPair) (types.Reserves, error) {
	bz := k.getStore(ctx).Get(ReservesKey(pair))
	if bz == nil {
		return types.ZeroReserves(), nil
	}

	var reserves types.Reserves
	if err := reserves.Unmarshal(bz); err != nil {
		return types.Reserves{}, types.ErrInvalidState.Wrapf("reserves of %s: %v", pair, err)
	}
	return reserves, nil
}

// setReserves stores the reserves of a pair. Gauges are refreshed from the
// emitted event once the enclosing operation commits.
func (k Keeper) setReserves(ctx context.Context, pair types.TokenPair, reserves types.Reserves) error {
	bz, err := reserves.Marshal()
	if err != nil {
		return types.ErrInvalidState.Wrapf("encode reserves of %s: %v", pair, err)
	}
	k.getStore(ctx).Set(ReservesKey(pair), bz)

	sdk.UnwrapSDKContext(ctx).EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeReservesUpdated,
			sdk.NewAttribute(types.AttributeKeyPair, pair.String()),
			sdk.NewAttribute(types.AttributeKeyTokenLow, pair.Low),
			sdk.NewAttribute(types.AttributeKeyTokenHigh, pair.High),
			sdk.NewAttribute(types.AttributeKeyReserveLow, reserves.Low.String()),
			sdk.NewAttribute(types.AttributeKeyReserveHigh, reserves.High.String()),
		),
	)
	return nil
}

// ApplyReserveDelta adds signed deltas to both reserves of a pair at once.
// A result below zero means the caller's arithmetic is wrong: it is logged and
// rejected with ErrReserveUnderflow before anything is written.
func (k Keeper) ApplyReserveDelta(ctx context.Context, pair types.TokenPair, deltaLow, deltaHigh math.Int) error {
	current, err := k.GetReserves(ctx, pair)
	if err != nil {
		return err
	}

	low, err := current.Low.SafeAdd(deltaLow)
	if err != nil {
		return types.ErrOverflow.Wrapf("reserve %s of %s", pair.Low, pair)
	}
	high, err := current.High.SafeAdd(deltaHigh)
	if err != nil {
		return types.ErrOverflow.Wrapf("reserve %s of %s", pair.High, pair)
	}

	if low.IsNegative() || high.IsNegative() {
		k.Logger(ctx).Error("reserve underflow",
			"pair", pair.String(),
			"reserve_low", current.Low.String(),
			"reserve_high", current.High.String(),
			"delta_low", deltaLow.String(),
			"delta_high", deltaHigh.String(),
		)
		return types.ErrReserveUnderflow.Wrapf("%s: %s%+d / %s%+d", pair, current.Low, deltaLow.BigInt(), current.High, deltaHigh.BigInt())
	}

	return k.setReserves(ctx, pair, types.Reserves{Low: low, High: high})
}

// IterateReserves calls cb for every stored pair in key order until cb returns true.
func (k Keeper) IterateReserves(ctx context.Context, cb func(pair types.TokenPair, reserves types.Reserves) (stop bool)) error {
	iterator := storetypes.KVStorePrefixIterator(k.getStore(ctx), ReservesKeyPrefix)
	defer iterator.Close()

	for ; iterator.Valid(); iterator.Next() {
		pair, err := parseReservesKey(iterator.Key()[len(ReservesKeyPrefix):])
		if err != nil {
			return types.ErrInvalidState.Wrap(err.Error())
		}
		var reserves types.Reserves
		if err := reserves.Unmarshal(iterator.Value()); err != nil {
			return types.ErrInvalidState.Wrapf("reserves of %s: %v", pair, err)
		}
		if cb(pair, reserves) {
			break
		}
	}
	return nil
}

// AllReserves returns every stored pair.
func (k Keeper) AllReserves(ctx context.Context) ([]types.PairReserves, error) {
	var out []types.PairReserves
	err := k.IterateReserves(ctx, func(pair types.TokenPair, reserves types.Reserves) bool {
		out = append(out, types.PairReserves{Pair: pair, Reserves: reserves})
		return false
	})
	return out, err
}

// approxFloat converts an amount for gauge reporting.
func approxFloat(amount math.Int) float64 {
	f, _ := amount.ToLegacyDec().Float64()
	return f
}
