package types

import (
	"context"
	"time"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// BankKeeper defines the bank surface used by the bank token adapter.
type BankKeeper interface {
	GetBalance(ctx context.Context, addr sdk.AccAddress, denom string) sdk.Coin
	SendCoinsFromAccountToModule(ctx context.Context, senderAddr sdk.AccAddress, recipientModule string, amt sdk.Coins) error
	SendCoinsFromModuleToAccount(ctx context.Context, senderModule string, recipientAddr sdk.AccAddress, amt sdk.Coins) error
}

// TokenTransfer moves value of one token into and out of pool custody. Both
// calls either complete fully or leave no effect, and report failure as an error.
type TokenTransfer interface {
	// PullFrom moves amount from owner into pool custody.
	PullFrom(ctx context.Context, owner sdk.AccAddress, amount math.Int) error

	// PushTo moves amount from pool custody to recipient.
	PushTo(ctx context.Context, recipient sdk.AccAddress, amount math.Int) error
}

// TokenResolver returns the transfer adapter for a token identifier.
type TokenResolver interface {
	Token(denom string) (TokenTransfer, error)
}

// CustodyReader is implemented by adapters that can report how much of their
// token the pool currently holds. Recovery hooks require it.
type CustodyReader interface {
	CustodyBalance(ctx context.Context) (math.Int, error)
}

// Clock is the time source for deadline checks.
type Clock interface {
	Now(ctx context.Context) time.Time
}
