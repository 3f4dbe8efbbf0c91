package keeper_test

import (
	"testing"
	"time"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/math"
	sdkerrors "github.com/cosmos/cosmos-sdk/types/errors"
	"github.com/stretchr/testify/require"

	keepertest "github.com/paw-chain/pawdex/testutil/keeper"
	"github.com/paw-chain/pawdex/x/dex/keeper"
	"github.com/paw-chain/pawdex/x/dex/types"
)

func TestSwapExactFeeBearing(t *testing.T) {
	k, ctx, book := keepertest.DexKeeper(t)
	seedPool(t, k, ctx, book)
	keepertest.Fund(t, ctx, book, bob, 1000, denomA)

	res, err := k.SwapExact(ctx, swapRequest(bob, denomA, denomB, 100))
	require.NoError(t, err)
	requireInt(t, 100, res.AmountIn)
	requireInt(t, 362, res.AmountOut)

	requireInt(t, 900, book.GetBalance(ctx, bob, denomA).Amount)
	requireInt(t, 362, book.GetBalance(ctx, bob, denomB).Amount)

	ab, err := k.Reserves(ctx, denomA, denomB)
	require.NoError(t, err)
	require.Equal(t, "1100", ab.ReserveA)
	require.Equal(t, "3638", ab.ReserveB)
}

func TestSwapExactFeeless(t *testing.T) {
	k, ctx, book := keepertest.DexKeeperWithPolicy(t, types.PolicyFeeless)
	seedPool(t, k, ctx, book)
	keepertest.Fund(t, ctx, book, bob, 1000, denomB)

	// Selling the high side: 400 * 1000 / (4000 + 400) = 90.9
	res, err := k.SwapExact(ctx, swapRequest(bob, denomB, denomA, 400))
	require.NoError(t, err)
	requireInt(t, 90, res.AmountOut)

	ab, err := k.Reserves(ctx, denomA, denomB)
	require.NoError(t, err)
	require.Equal(t, "910", ab.ReserveA)
	require.Equal(t, "4400", ab.ReserveB)
}

func TestSwapExactToRecipient(t *testing.T) {
	k, ctx, book := keepertest.DexKeeper(t)
	seedPool(t, k, ctx, book)
	keepertest.Fund(t, ctx, book, bob, 1000, denomA)

	req := swapRequest(bob, denomA, denomB, 100)
	req.Recipient = carol
	_, err := k.SwapExact(ctx, req)
	require.NoError(t, err)
	requireInt(t, 362, book.GetBalance(ctx, carol, denomB).Amount)
	require.True(t, book.GetBalance(ctx, bob, denomB).Amount.IsZero())
}

func TestSwapExactErrors(t *testing.T) {
	k, ctx, book := keepertest.DexKeeper(t)
	seedPool(t, k, ctx, book)
	keepertest.Fund(t, ctx, book, bob, 1000, denomA)
	before := takeSnapshot(t, k, ctx, book, bob, carol)

	req := swapRequest(bob, denomA, denomB, 100)
	req.AmountOutMin = math.NewInt(363)
	_, err := k.SwapExact(ctx, req)
	require.ErrorIs(t, err, types.ErrInsufficientOutputAmount)

	req = swapRequest(bob, denomA, denomB, 0)
	_, err = k.SwapExact(ctx, req)
	require.ErrorIs(t, err, types.ErrZeroInput)

	req = swapRequest(bob, denomA, denomB, 100)
	req.Path = []string{denomA, "uosmo", denomB}
	_, err = k.SwapExact(ctx, req)
	require.ErrorIs(t, err, types.ErrInvalidPath)

	req = swapRequest(bob, denomA, denomA, 100)
	_, err = k.SwapExact(ctx, req)
	require.ErrorIs(t, err, types.ErrIdenticalTokens)

	req = swapRequest(bob, denomA, "uosmo", 100)
	_, err = k.SwapExact(ctx, req)
	require.ErrorIs(t, err, types.ErrInsufficientLiquidity)

	req = swapRequest(bob, denomA, denomB, 100)
	req.Deadline = ctx.BlockTime().Add(-time.Second)
	_, err = k.SwapExact(ctx, req)
	require.ErrorIs(t, err, types.ErrExpired)

	req = swapRequest(bob, denomA, denomB, 5000)
	_, err = k.SwapExact(ctx, req)
	require.ErrorIs(t, err, types.ErrTransferFailed)

	book.BlockAddr(ctx, carol)
	req = swapRequest(bob, denomA, denomB, 100)
	req.Recipient = carol
	_, err = k.SwapExact(ctx, req)
	require.ErrorIs(t, err, types.ErrTransferFailed)
	book.UnblockAddr(ctx, carol)

	requireUnchanged(t, before, takeSnapshot(t, k, ctx, book, bob, carol))
}

func TestSwapExactConstantProductGrows(t *testing.T) {
	k, ctx, book := keepertest.DexKeeper(t)
	seedPool(t, k, ctx, book)
	keepertest.Fund(t, ctx, book, bob, 1_000_000, denomA, denomB)

	pair, err := types.NewTokenPair(denomA, denomB)
	require.NoError(t, err)

	for i, req := range []struct {
		in, out string
		amount  int64
	}{
		{denomA, denomB, 1}, {denomB, denomA, 37}, {denomA, denomB, 999}, {denomB, denomA, 12345},
	} {
		before, err := k.GetReserves(ctx, pair)
		require.NoError(t, err)
		_, err = k.SwapExact(ctx, swapRequest(bob, req.in, req.out, req.amount))
		require.NoError(t, err, "swap %d", i)
		after, err := k.GetReserves(ctx, pair)
		require.NoError(t, err)

		kBefore, err := before.Product()
		require.NoError(t, err)
		kAfter, err := after.Product()
		require.NoError(t, err)
		require.True(t, kAfter.GT(kBefore), "swap %d: %s -> %s", i, kBefore, kAfter)
	}
}

func TestQuoteSwapDoesNotMutate(t *testing.T) {
	k, ctx, book := keepertest.DexKeeper(t)
	seedPool(t, k, ctx, book)
	before := takeSnapshot(t, k, ctx, book, alice)

	first, err := k.QuoteSwap(ctx, math.NewInt(100), denomA, denomB)
	require.NoError(t, err)
	second, err := k.QuoteSwap(ctx, math.NewInt(100), denomA, denomB)
	require.NoError(t, err)
	requireInt(t, 362, first)
	require.True(t, first.Equal(second))

	out, err := k.ComputeOutput(math.NewInt(100), math.NewInt(1000), math.NewInt(4000))
	require.NoError(t, err)
	require.True(t, out.Equal(first))

	requireUnchanged(t, before, takeSnapshot(t, k, ctx, book, alice))
}

func TestGetPrice(t *testing.T) {
	k, ctx, book := keepertest.DexKeeper(t)

	_, err := k.GetPrice(ctx, denomA, denomB)
	require.ErrorIs(t, err, types.ErrNoLiquidity)

	seedPool(t, k, ctx, book)

	price, err := k.GetPrice(ctx, denomA, denomB)
	require.NoError(t, err)
	require.Equal(t, math.NewIntWithDecimal(4, 18).String(), price.String())

	inverse, err := k.GetPrice(ctx, denomB, denomA)
	require.NoError(t, err)
	require.Equal(t, "250000000000000000", inverse.String())
	require.Equal(t, "0.250000000000000000", types.PriceToDec(inverse).String())
}

func TestSwapMetricsRecorded(t *testing.T) {
	k, ctx, book := keepertest.DexKeeper(t)
	seedPool(t, k, ctx, book)
	keepertest.Fund(t, ctx, book, bob, 1000, denomA)

	counter := k.Metrics().SwapsTotal.WithLabelValues(denomA, denomB)
	before := testutilCounter(counter)
	_, err := k.SwapExact(ctx, swapRequest(bob, denomA, denomB, 10))
	require.NoError(t, err)
	require.Equal(t, before+1, testutilCounter(counter))

	failures := k.Metrics().OperationFailures.WithLabelValues(keeper.OpSwap, types.ModuleName)
	failedBefore := testutilCounter(failures)
	_, err = k.SwapExact(ctx, swapRequest(bob, denomA, denomB, 0))
	require.Error(t, err)
	require.Equal(t, failedBefore+1, testutilCounter(failures))
}

func TestTransferFailureKeepsCause(t *testing.T) {
	k, ctx, book := keepertest.DexKeeper(t)
	seedPool(t, k, ctx, book)
	keepertest.Fund(t, ctx, book, bob, 10, denomA)

	_, err := k.SwapExact(ctx, swapRequest(bob, denomA, denomB, 100))
	require.ErrorIs(t, err, types.ErrTransferFailed)
	require.ErrorIs(t, err, sdkerrors.ErrInsufficientFunds)

	codespace, code, _ := errorsmod.ABCIInfo(err, false)
	require.Equal(t, types.ModuleName, codespace)
	require.Equal(t, types.ErrTransferFailed.ABCICode(), code)
}
