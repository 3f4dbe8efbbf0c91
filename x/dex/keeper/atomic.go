package keeper

import (
	"context"
	"strconv"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/cosmos/cosmos-sdk/telemetry"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/hashicorp/go-metrics"

	"github.com/paw-chain/pawdex/x/dex/types"
)

// Operation names used in logs, metrics and traces.
const (
	OpDeposit      = "deposit"
	OpWithdraw     = "withdraw"
	OpSwap         = "swap"
	OpApprove      = "approve"
	OpTransfer     = "transfer"
	OpTransferFrom = "transfer_from"
	OpRecover      = "recover"
)

// checkDeadline fails with ErrExpired once the clock has passed deadline.
func (k Keeper) checkDeadline(ctx context.Context, deadline time.Time) error {
	now := k.clock.Now(ctx)
	if now.After(deadline) {
		return types.ErrExpired.Wrapf("deadline %s, now %s", deadline.UTC().Format(time.RFC3339), now.UTC().Format(time.RFC3339))
	}
	return nil
}

// executeAtomic runs fn against a branch of the store. The branch, and the
// events emitted on it, are committed only when fn returns nil; any error leaves
// the parent context untouched.
func (k Keeper) executeAtomic(ctx context.Context, op string, fn func(sdk.Context) error) error {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	cacheCtx, write := sdkCtx.CacheContext()

	if err := fn(cacheCtx); err != nil {
		k.recordFailure(sdkCtx, op, err)
		return err
	}

	write()
	k.refreshGauges(sdkCtx, cacheCtx.EventManager().Events())
	return nil
}

// refreshGauges reads committed state for every pair named in a reserves
// event and for the share supply. It runs only after a branch is written so
// the gauges never report rolled-back values.
func (k Keeper) refreshGauges(ctx sdk.Context, events sdk.Events) {
	for _, event := range events {
		if event.Type != types.EventTypeReservesUpdated {
			continue
		}
		var pair types.TokenPair
		for _, attr := range event.Attributes {
			switch attr.Key {
			case types.AttributeKeyTokenLow:
				pair.Low = attr.Value
			case types.AttributeKeyTokenHigh:
				pair.High = attr.Value
			}
		}
		reserves, err := k.GetReserves(ctx, pair)
		if err != nil {
			k.Logger(ctx).Error("refresh reserve gauges", "pair", pair.String(), "error", err)
			continue
		}
		k.metrics.PoolReserves.WithLabelValues(pair.String(), pair.Low).Set(approxFloat(reserves.Low))
		k.metrics.PoolReserves.WithLabelValues(pair.String(), pair.High).Set(approxFloat(reserves.High))
	}

	supply, err := k.TotalShares(ctx)
	if err != nil {
		k.Logger(ctx).Error("refresh share supply gauge", "error", err)
		return
	}
	k.metrics.ShareSupply.Set(approxFloat(supply))
}

// recordFailure counts a failed operation by codespace and code.
func (k Keeper) recordFailure(ctx sdk.Context, op string, err error) {
	codespace, code, _ := errorsmod.ABCIInfo(err, false)

	telemetry.IncrCounterWithLabels(
		[]string{types.ModuleName, op, "failure"},
		1,
		[]metrics.Label{
			telemetry.NewLabel("codespace", codespace),
			telemetry.NewLabel("code", strconv.FormatUint(uint64(code), 10)),
		},
	)
	k.metrics.OperationFailures.WithLabelValues(op, codespace).Inc()

	k.Logger(ctx).Debug("dex operation rejected", "operation", op, "error", err)
}
