package keeper

import (
	"testing"
	"time"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	"cosmossdk.io/store"
	"cosmossdk.io/store/metrics"
	storetypes "cosmossdk.io/store/types"
	"github.com/cometbft/cometbft/crypto/tmhash"
	cmtproto "github.com/cometbft/cometbft/proto/tendermint/types"
	dbm "github.com/cosmos/cosmos-db"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"

	"github.com/paw-chain/pawdex/pkg/tokenbook"
	"github.com/paw-chain/pawdex/x/dex/keeper"
	"github.com/paw-chain/pawdex/x/dex/types"
)

// GenesisTime is the block time of every test context.
var GenesisTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Authority is the recovery authority of test keepers.
var Authority = TestAddr("authority").String()

// DexKeeper creates a test keeper for the DEX module under the default policy,
// with custody kept in a token book mounted on the same store.
func DexKeeper(t testing.TB) (keeper.Keeper, sdk.Context, *tokenbook.Book) {
	return DexKeeperWithPolicy(t, types.DefaultPolicy)
}

// DexKeeperWithPolicy creates a test keeper with the given fee policy.
func DexKeeperWithPolicy(t testing.TB, policy types.Policy) (keeper.Keeper, sdk.Context, *tokenbook.Book) {
	return DexKeeperWithClock(t, policy, nil)
}

// DexKeeperWithClock creates a test keeper whose deadlines are checked against
// clock instead of the block time.
func DexKeeperWithClock(t testing.TB, policy types.Policy, clock types.Clock) (keeper.Keeper, sdk.Context, *tokenbook.Book) {
	storeKey := storetypes.NewKVStoreKey(types.StoreKey)
	bookKey := storetypes.NewKVStoreKey(tokenbook.StoreKey)

	db := dbm.NewMemDB()
	stateStore := store.NewCommitMultiStore(db, log.NewNopLogger(), metrics.NewNoOpMetrics())
	stateStore.MountStoreWithDB(storeKey, storetypes.StoreTypeIAVL, db)
	stateStore.MountStoreWithDB(bookKey, storetypes.StoreTypeIAVL, db)
	require.NoError(t, stateStore.LoadLatestVersion())

	book := tokenbook.NewBook(bookKey)
	k := keeper.NewKeeper(
		storeKey,
		keeper.NewBankTokens(book),
		clock,
		policy,
		Authority,
	)

	ctx := sdk.NewContext(stateStore, cmtproto.Header{Height: 1, Time: GenesisTime}, false, log.NewNopLogger())

	return k, ctx, book
}

// TestAddr derives a deterministic account address from name.
func TestAddr(name string) sdk.AccAddress {
	return sdk.AccAddress(tmhash.SumTruncated([]byte(name)))
}

// Fund mints amount of each denom to addr.
func Fund(t testing.TB, ctx sdk.Context, book *tokenbook.Book, addr sdk.AccAddress, amount int64, denoms ...string) {
	coins := sdk.NewCoins()
	for _, denom := range denoms {
		coins = coins.Add(sdk.NewCoin(denom, math.NewInt(amount)))
	}
	require.NoError(t, book.Mint(ctx, addr, coins))
}

// Deadline returns a deadline one hour after the test block time.
func Deadline() time.Time {
	return GenesisTime.Add(time.Hour)
}
