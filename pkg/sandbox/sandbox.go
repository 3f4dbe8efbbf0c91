// Package sandbox hosts a dex keeper outside a chain. It owns an in-memory
// commit multistore, runs one operation at a time, and commits after every
// successful operation, which gives callers the serial execution model of a
// block executor.
package sandbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	"cosmossdk.io/store"
	"cosmossdk.io/store/metrics"
	storetypes "cosmossdk.io/store/types"
	cmtproto "github.com/cometbft/cometbft/proto/tendermint/types"
	dbm "github.com/cosmos/cosmos-db"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/paw-chain/pawdex/pkg/journal"
	"github.com/paw-chain/pawdex/pkg/telemetry"
	"github.com/paw-chain/pawdex/pkg/tokenbook"
	"github.com/paw-chain/pawdex/x/dex/keeper"
	"github.com/paw-chain/pawdex/x/dex/types"
)

// Config configures a Sandbox.
type Config struct {
	Policy    types.Policy
	Authority string

	// Now supplies the block time of each operation. Defaults to time.Now.
	Now func() time.Time

	Logger    log.Logger
	Telemetry *telemetry.Provider
	Sinks     []journal.Sink
}

// Sandbox is a serial host for a dex keeper.
type Sandbox struct {
	mu sync.RWMutex

	cms    storetypes.CommitMultiStore
	keeper keeper.Keeper
	book   *tokenbook.Book
	height int64

	now    func() time.Time
	logger log.Logger
	tracer trace.Tracer
	ops    metric.Int64Counter
	sinks  []journal.Sink
}

// New builds a sandbox with empty state.
func New(cfg Config) (*Sandbox, error) {
	if cfg.Policy == types.PolicyUnspecified {
		cfg.Policy = types.DefaultPolicy
	}
	if err := cfg.Policy.Validate(); err != nil {
		return nil, err
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNopLogger()
	}

	dexKey := storetypes.NewKVStoreKey(types.StoreKey)
	bookKey := storetypes.NewKVStoreKey(tokenbook.StoreKey)

	db := dbm.NewMemDB()
	cms := store.NewCommitMultiStore(db, cfg.Logger, metrics.NewNoOpMetrics())
	// A nil db lets the root store give each tree its own key prefix.
	cms.MountStoreWithDB(dexKey, storetypes.StoreTypeIAVL, nil)
	cms.MountStoreWithDB(bookKey, storetypes.StoreTypeIAVL, nil)
	if err := cms.LoadLatestVersion(); err != nil {
		return nil, fmt.Errorf("sandbox: load store: %w", err)
	}

	book := tokenbook.NewBook(bookKey)
	k := keeper.NewKeeper(dexKey, keeper.NewBankTokens(book), keeper.BlockTimeClock{}, cfg.Policy, cfg.Authority)

	ops, err := cfg.Telemetry.Meter().Int64Counter(
		"pawdex.sandbox.operations",
		metric.WithDescription("Operations executed by the sandbox"),
	)
	if err != nil {
		return nil, fmt.Errorf("sandbox: operations counter: %w", err)
	}

	return &Sandbox{
		cms:    cms,
		keeper: k,
		book:   book,
		now:    cfg.Now,
		logger: cfg.Logger.With("module", "sandbox"),
		tracer: cfg.Telemetry.Tracer(),
		ops:    ops,
		sinks:  cfg.Sinks,
	}, nil
}

// Keeper returns the hosted keeper. Its methods must only be called with
// contexts handed out by Execute or Query.
func (s *Sandbox) Keeper() keeper.Keeper {
	return s.keeper
}

// Book returns the token book backing custody.
func (s *Sandbox) Book() *tokenbook.Book {
	return s.book
}

// Height returns the height of the last committed operation.
func (s *Sandbox) Height() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.height
}

// Execute runs fn as the next block. State written by fn is committed only if
// fn returns nil; the events it emitted are then forwarded to the sinks.
func (s *Sandbox) Execute(ctx context.Context, op string, fn func(sdk.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	height := s.height + 1
	ctx, span := telemetry.StartOperationSpan(ctx, s.tracer, op, height)
	defer span.End()

	header := cmtproto.Header{Height: height, Time: s.now().UTC()}
	sdkCtx := sdk.NewContext(s.cms, header, false, s.logger).WithContext(ctx)
	cacheCtx, write := sdkCtx.CacheContext()

	if err := fn(cacheCtx); err != nil {
		telemetry.RecordError(span, err)
		s.ops.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", op), attribute.String("status", "failed")))
		return err
	}

	write()
	commit := s.cms.Commit()
	s.height = height
	telemetry.SetSpanStatus(span, true, "committed")
	s.ops.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", op), attribute.String("status", "committed")))

	entries := journal.EntriesFromEvents(height, header.Time, op, sdkCtx.EventManager().Events())
	for _, sink := range s.sinks {
		if err := sink.Record(ctx, entries); err != nil {
			// The operation is already committed; a sink failure only loses the record.
			s.logger.Error("journal sink failed", "operation", op, "height", height, "error", err)
		}
	}

	s.logger.Debug("operation committed", "operation", op, "height", height, "app_hash", fmt.Sprintf("%X", commit.Hash))
	return nil
}

// Query runs fn against a throwaway branch of the latest state.
func (s *Sandbox) Query(ctx context.Context, fn func(sdk.Context) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	header := cmtproto.Header{Height: s.height, Time: s.now().UTC()}
	sdkCtx := sdk.NewContext(s.cms.CacheMultiStore(), header, true, s.logger).WithContext(ctx)
	return fn(sdkCtx)
}

// Fund mints coins to addr.
func (s *Sandbox) Fund(ctx context.Context, addr sdk.AccAddress, coins sdk.Coins) error {
	return s.Execute(ctx, "fund", func(sdkCtx sdk.Context) error {
		return s.book.Mint(sdkCtx, addr, coins)
	})
}

// Balance returns addr's token balance in denom.
func (s *Sandbox) Balance(ctx context.Context, addr sdk.AccAddress, denom string) (sdk.Coin, error) {
	var coin sdk.Coin
	err := s.Query(ctx, func(sdkCtx sdk.Context) error {
		coin = s.book.GetBalance(sdkCtx, addr, denom)
		return nil
	})
	return coin, err
}

// InitGenesis loads a genesis state as the first block. The token book has no
// genesis of its own, so module custody is minted to match the imported
// reserves.
func (s *Sandbox) InitGenesis(ctx context.Context, gs types.GenesisState) error {
	return s.Execute(ctx, "genesis", func(sdkCtx sdk.Context) error {
		if err := s.keeper.InitGenesis(sdkCtx, gs); err != nil {
			return err
		}
		custody := sdk.NewCoins()
		for _, pr := range gs.Reserves {
			custody = custody.Add(
				sdk.NewCoin(pr.Pair.Low, pr.Reserves.Low),
				sdk.NewCoin(pr.Pair.High, pr.Reserves.High),
			)
		}
		if custody.IsZero() {
			return nil
		}
		if err := s.book.Mint(sdkCtx, keeper.ModuleAddress(), custody); err != nil {
			return fmt.Errorf("sandbox: fund genesis custody: %w", err)
		}
		return nil
	})
}

// Deposit runs DepositLiquidity as a block.
func (s *Sandbox) Deposit(ctx context.Context, req types.DepositRequest) (res types.DepositResult, err error) {
	err = s.Execute(ctx, keeper.OpDeposit, func(sdkCtx sdk.Context) error {
		res, err = s.keeper.DepositLiquidity(sdkCtx, req)
		return err
	})
	return res, err
}

// Withdraw runs WithdrawLiquidity as a block.
func (s *Sandbox) Withdraw(ctx context.Context, req types.WithdrawRequest) (res types.WithdrawResult, err error) {
	err = s.Execute(ctx, keeper.OpWithdraw, func(sdkCtx sdk.Context) error {
		res, err = s.keeper.WithdrawLiquidity(sdkCtx, req)
		return err
	})
	return res, err
}

// Swap runs SwapExact as a block.
func (s *Sandbox) Swap(ctx context.Context, req types.SwapRequest) (res types.SwapResult, err error) {
	err = s.Execute(ctx, keeper.OpSwap, func(sdkCtx sdk.Context) error {
		res, err = s.keeper.SwapExact(sdkCtx, req)
		return err
	})
	return res, err
}

// Approve sets spender's share allowance over owner's shares.
func (s *Sandbox) Approve(ctx context.Context, owner, spender sdk.AccAddress, amount math.Int) error {
	return s.Execute(ctx, keeper.OpApprove, func(sdkCtx sdk.Context) error {
		return s.keeper.Approve(sdkCtx, owner, spender, amount)
	})
}

// Transfer moves shares between holders.
func (s *Sandbox) Transfer(ctx context.Context, from, to sdk.AccAddress, amount math.Int) error {
	return s.Execute(ctx, keeper.OpTransfer, func(sdkCtx sdk.Context) error {
		return s.keeper.Transfer(sdkCtx, from, to, amount)
	})
}

// TransferFrom moves shares of from on behalf of spender.
func (s *Sandbox) TransferFrom(ctx context.Context, spender, from, to sdk.AccAddress, amount math.Int) error {
	return s.Execute(ctx, keeper.OpTransferFrom, func(sdkCtx sdk.Context) error {
		return s.keeper.TransferFrom(sdkCtx, spender, from, to, amount)
	})
}

// Recover sends stray custody of denom to to, signed by authority.
func (s *Sandbox) Recover(ctx context.Context, authority, denom string, to sdk.AccAddress, amount math.Int) error {
	return s.Execute(ctx, keeper.OpRecover, func(sdkCtx sdk.Context) error {
		return s.keeper.RecoverTokens(sdkCtx, authority, denom, to, amount)
	})
}
