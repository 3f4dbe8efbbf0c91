package sandbox_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"

	"github.com/paw-chain/pawdex/pkg/journal"
	"github.com/paw-chain/pawdex/pkg/sandbox"
	keepertest "github.com/paw-chain/pawdex/testutil/keeper"
	"github.com/paw-chain/pawdex/x/dex/keeper"
	"github.com/paw-chain/pawdex/x/dex/types"
)

var (
	alice = keepertest.TestAddr("alice")
	bob   = keepertest.TestAddr("bob")
)

func newSandbox(t *testing.T, sink journal.Sink) *sandbox.Sandbox {
	t.Helper()
	now := keepertest.GenesisTime
	sb, err := sandbox.New(sandbox.Config{
		Policy:    types.PolicyFeeBearing,
		Authority: keepertest.Authority,
		Now:       func() time.Time { return now },
		Sinks:     []journal.Sink{sink},
	})
	require.NoError(t, err)
	return sb
}

func TestSandboxDepositAndSwap(t *testing.T) {
	sink := journal.NewMemorySink(0)
	sb := newSandbox(t, sink)
	ctx := context.Background()

	require.NoError(t, sb.Fund(ctx, alice, sdk.NewCoins(sdk.NewInt64Coin("uatom", 10_000), sdk.NewInt64Coin("uusdc", 10_000))))
	require.NoError(t, sb.Fund(ctx, bob, sdk.NewCoins(sdk.NewInt64Coin("uatom", 1_000))))

	res, err := sb.Deposit(ctx, types.DepositRequest{
		Provider:       alice,
		TokenA:         "uatom",
		TokenB:         "uusdc",
		AmountADesired: math.NewInt(1000),
		AmountBDesired: math.NewInt(4000),
		AmountAMin:     math.ZeroInt(),
		AmountBMin:     math.ZeroInt(),
		Recipient:      alice,
		Deadline:       keepertest.Deadline(),
	})
	require.NoError(t, err)
	require.Equal(t, "2000", res.Shares.String())

	swap, err := sb.Swap(ctx, types.SwapRequest{
		Trader:       bob,
		Path:         []string{"uatom", "uusdc"},
		AmountIn:     math.NewInt(100),
		AmountOutMin: math.ZeroInt(),
		Recipient:    bob,
		Deadline:     keepertest.Deadline(),
	})
	require.NoError(t, err)
	require.Equal(t, "362", swap.AmountOut.String())
	require.Equal(t, int64(4), sb.Height())

	coin, err := sb.Balance(ctx, bob, "uusdc")
	require.NoError(t, err)
	require.Equal(t, "362", coin.Amount.String())

	swaps := sink.Filter(types.EventTypeSwap)
	require.Len(t, swaps, 1)
	require.Equal(t, int64(4), swaps[0].Height)
	require.Equal(t, "362", swaps[0].Attributes[types.AttributeKeyAmountOut])
	require.NotEmpty(t, sink.Filter(types.EventTypeDepositLiquidity))
}

func TestSandboxFailedOperationIsNotCommitted(t *testing.T) {
	sink := journal.NewMemorySink(0)
	sb := newSandbox(t, sink)
	ctx := context.Background()

	_, err := sb.Swap(ctx, types.SwapRequest{
		Trader:       bob,
		Path:         []string{"uatom", "uusdc"},
		AmountIn:     math.NewInt(100),
		AmountOutMin: math.ZeroInt(),
		Recipient:    bob,
		Deadline:     keepertest.Deadline(),
	})
	require.ErrorIs(t, err, types.ErrInsufficientLiquidity)
	require.Equal(t, int64(0), sb.Height())
	require.Empty(t, sink.Entries())

	boom := errors.New("boom")
	err = sb.Execute(ctx, "custom", func(sdkCtx sdk.Context) error {
		require.NoError(t, sb.Book().Mint(sdkCtx, alice, sdk.NewCoins(sdk.NewInt64Coin("uatom", 5))))
		return boom
	})
	require.ErrorIs(t, err, boom)

	coin, err := sb.Balance(ctx, alice, "uatom")
	require.NoError(t, err)
	require.True(t, coin.Amount.IsZero())
}

func TestSandboxQueryDoesNotWrite(t *testing.T) {
	sb := newSandbox(t, journal.NewMemorySink(0))
	ctx := context.Background()

	require.NoError(t, sb.Query(ctx, func(sdkCtx sdk.Context) error {
		return sb.Book().Mint(sdkCtx, alice, sdk.NewCoins(sdk.NewInt64Coin("uatom", 5)))
	}))

	coin, err := sb.Balance(ctx, alice, "uatom")
	require.NoError(t, err)
	require.True(t, coin.Amount.IsZero())
}

func TestSandboxGenesis(t *testing.T) {
	sb := newSandbox(t, journal.NewMemorySink(0))
	ctx := context.Background()

	gs := types.DefaultGenesis()
	gs.Reserves = []types.PairReserves{{
		Pair:     types.TokenPair{Low: "uatom", High: "uusdc"},
		Reserves: types.Reserves{Low: math.NewInt(10), High: math.NewInt(20)},
	}}
	gs.Balances = []types.ShareBalance{{Address: alice.String(), Amount: math.NewInt(14)}}
	require.NoError(t, sb.InitGenesis(ctx, *gs))

	require.NoError(t, sb.Query(ctx, func(sdkCtx sdk.Context) error {
		shares, err := sb.Keeper().BalanceOf(sdkCtx, alice)
		require.NoError(t, err)
		require.Equal(t, "14", shares.String())
		return nil
	}))
}

func TestSandboxCommitsManyBlocks(t *testing.T) {
	sb := newSandbox(t, journal.NewMemorySink(0))
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, sb.Fund(ctx, alice, sdk.NewCoins(sdk.NewInt64Coin("uatom", 1_000), sdk.NewInt64Coin("uusdc", 4_000))))
	}
	require.Equal(t, int64(10), sb.Height())

	for i := 0; i < 3; i++ {
		_, err := sb.Deposit(ctx, types.DepositRequest{
			Provider:       alice,
			TokenA:         "uatom",
			TokenB:         "uusdc",
			AmountADesired: math.NewInt(1000),
			AmountBDesired: math.NewInt(4000),
			AmountAMin:     math.ZeroInt(),
			AmountBMin:     math.ZeroInt(),
			Recipient:      alice,
			Deadline:       keepertest.Deadline(),
		})
		require.NoError(t, err)
	}
	require.Equal(t, int64(13), sb.Height())

	coin, err := sb.Balance(ctx, alice, "uatom")
	require.NoError(t, err)
	require.Equal(t, "7000", coin.Amount.String())
	require.NoError(t, sb.Query(ctx, func(sdkCtx sdk.Context) error {
		shares, err := sb.Keeper().BalanceOf(sdkCtx, alice)
		require.NoError(t, err)
		require.Equal(t, "6000", shares.String())
		return nil
	}))
}

func TestSandboxGenesisPoolPaysOut(t *testing.T) {
	sb := newSandbox(t, journal.NewMemorySink(0))
	ctx := context.Background()

	gs := types.DefaultGenesis()
	gs.Reserves = []types.PairReserves{{
		Pair:     types.TokenPair{Low: "uatom", High: "uusdc"},
		Reserves: types.Reserves{Low: math.NewInt(1000), High: math.NewInt(4000)},
	}}
	gs.Balances = []types.ShareBalance{{Address: alice.String(), Amount: math.NewInt(2000)}}
	require.NoError(t, sb.InitGenesis(ctx, *gs))
	require.NoError(t, sb.Fund(ctx, bob, sdk.NewCoins(sdk.NewInt64Coin("uatom", 1_000))))

	swap, err := sb.Swap(ctx, types.SwapRequest{
		Trader:       bob,
		Path:         []string{"uatom", "uusdc"},
		AmountIn:     math.NewInt(100),
		AmountOutMin: math.ZeroInt(),
		Recipient:    bob,
		Deadline:     keepertest.Deadline(),
	})
	require.NoError(t, err)
	require.Equal(t, "362", swap.AmountOut.String())

	res, err := sb.Withdraw(ctx, types.WithdrawRequest{
		Provider:   alice,
		TokenA:     "uatom",
		TokenB:     "uusdc",
		Shares:     math.NewInt(2000),
		AmountAMin: math.ZeroInt(),
		AmountBMin: math.ZeroInt(),
		Recipient:  alice,
		Deadline:   keepertest.Deadline(),
	})
	require.NoError(t, err)
	require.Equal(t, "1100", res.AmountA.String())
	require.Equal(t, "3638", res.AmountB.String())

	for denom, want := range map[string]string{"uatom": "1100", "uusdc": "3638"} {
		coin, err := sb.Balance(ctx, alice, denom)
		require.NoError(t, err)
		require.Equal(t, want, coin.Amount.String(), denom)

		custody, err := sb.Balance(ctx, keeper.ModuleAddress(), denom)
		require.NoError(t, err)
		require.True(t, custody.Amount.IsZero(), denom)
	}
}
