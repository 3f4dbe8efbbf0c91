package keeper

import (
	"context"
	"fmt"

	"cosmossdk.io/log"
	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/paw-chain/pawdex/x/dex/types"
)

// Keeper of the dex store
type Keeper struct {
	storeKey  storetypes.StoreKey
	tokens    types.TokenResolver
	clock     types.Clock
	policy    types.Policy
	authority string
	metrics   *DEXMetrics
}

// NewKeeper creates a new dex Keeper instance. A nil clock falls back to the
// block time of the context.
func NewKeeper(
	key storetypes.StoreKey,
	tokens types.TokenResolver,
	clock types.Clock,
	policy types.Policy,
	authority string,
) Keeper {
	if err := policy.Validate(); err != nil {
		panic(fmt.Sprintf("dex keeper: %v", err))
	}
	if tokens == nil {
		panic("dex keeper: token resolver is required")
	}
	if clock == nil {
		clock = BlockTimeClock{}
	}

	return Keeper{
		storeKey:  key,
		tokens:    tokens,
		clock:     clock,
		policy:    policy,
		authority: authority,
		metrics:   NewDEXMetrics(),
	}
}

// getStore returns the KVStore for the dex module
func (k Keeper) getStore(ctx context.Context) storetypes.KVStore {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	return sdkCtx.KVStore(k.storeKey)
}

// Logger returns a module-specific logger.
func (k Keeper) Logger(ctx context.Context) log.Logger {
	return sdk.UnwrapSDKContext(ctx).Logger().With("module", "x/"+types.ModuleName)
}

// Policy returns the fee policy the keeper was built with.
func (k Keeper) Policy() types.Policy {
	return k.policy
}

// GetAuthority returns the address allowed to call recovery hooks.
func (k Keeper) GetAuthority() string {
	return k.authority
}

// Metrics returns the Prometheus collectors of the module.
func (k Keeper) Metrics() *DEXMetrics {
	return k.metrics
}
