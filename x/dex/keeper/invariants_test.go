package keeper_test

import (
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	keepertest "github.com/paw-chain/pawdex/testutil/keeper"
	"github.com/paw-chain/pawdex/x/dex/keeper"
	"github.com/paw-chain/pawdex/x/dex/types"
)

func TestInvariantsHoldAfterOperations(t *testing.T) {
	for _, policy := range []types.Policy{types.PolicyFeeBearing, types.PolicyFeeless} {
		t.Run(policy.String(), func(t *testing.T) {
			k, ctx, book := keepertest.DexKeeperWithPolicy(t, policy)
			seedPool(t, k, ctx, book)
			keepertest.Fund(t, ctx, book, bob, 100_000, denomA, denomB)

			_, err := k.DepositLiquidity(ctx, depositRequest(bob, 100, 400))
			require.NoError(t, err)
			_, err = k.SwapExact(ctx, swapRequest(bob, denomB, denomA, 250))
			require.NoError(t, err)
			require.NoError(t, k.Transfer(ctx, bob, carol, math.NewInt(10)))

			msg, broken := keeper.AllInvariants(k)(ctx)
			require.False(t, broken, msg)
		})
	}
}

func TestShareConservationInvariantDetectsDrift(t *testing.T) {
	k, ctx, _ := keepertest.DexKeeper(t)
	require.NoError(t, k.Mint(ctx, alice, math.NewInt(10)))

	// Corrupt the supply directly.
	bz, err := math.NewInt(11).Marshal()
	require.NoError(t, err)
	ctx.KVStore(k.StoreKey()).Set(keeper.TotalSharesKey, bz)

	_, broken := keeper.ShareConservationInvariant(k)(ctx)
	require.True(t, broken)
}

func TestLockedLiquidityInvariant(t *testing.T) {
	k, ctx, book := keepertest.DexKeeperWithPolicy(t, types.PolicyFeeless)
	seedPool(t, k, ctx, book)
	_, broken := keeper.LockedLiquidityInvariant(k)(ctx)
	require.False(t, broken)

	// A feeless ledger that mints without the lock breaks it.
	k2, ctx2, _ := keepertest.DexKeeperWithPolicy(t, types.PolicyFeeless)
	require.NoError(t, k2.Mint(ctx2, alice, math.NewInt(10)))
	_, broken = keeper.LockedLiquidityInvariant(k2)(ctx2)
	require.True(t, broken)
}

func TestBackedReservesInvariant(t *testing.T) {
	k, ctx, _ := keepertest.DexKeeper(t)
	_, broken := keeper.BackedReservesInvariant(k)(ctx)
	require.False(t, broken)

	pair, err := types.NewTokenPair(denomA, denomB)
	require.NoError(t, err)
	require.NoError(t, k.ApplyReserveDelta(ctx, pair, math.NewInt(10), math.ZeroInt()))
	msg, broken := keeper.BackedReservesInvariant(k)(ctx)
	require.True(t, broken)
	require.Contains(t, msg, pair.String())

	require.NoError(t, k.Mint(ctx, alice, math.NewInt(1)))
	_, broken = keeper.BackedReservesInvariant(k)(ctx)
	require.False(t, broken)
}
