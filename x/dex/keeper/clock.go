package keeper

import (
	"context"
	"time"

	sdk "github.com/cosmos/cosmos-sdk/types"
)

// BlockTimeClock reads the block time from the context.
type BlockTimeClock struct{}

// Now implements types.Clock.
func (BlockTimeClock) Now(ctx context.Context) time.Time {
	return sdk.UnwrapSDKContext(ctx).BlockTime()
}

// FixedClock always reports the same instant.
type FixedClock time.Time

// Now implements types.Clock.
func (c FixedClock) Now(context.Context) time.Time {
	return time.Time(c)
}
