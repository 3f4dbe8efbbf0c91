package keeper

import (
	"context"
	"fmt"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	authtypes "github.com/cosmos/cosmos-sdk/x/auth/types"

	"github.com/paw-chain/pawdex/x/dex/types"
)

// BankTokens resolves every denom to a bank-backed transfer that keeps custody
// in the dex module account.
type BankTokens struct {
	bank types.BankKeeper
}

// NewBankTokens returns a TokenResolver over bank.
func NewBankTokens(bank types.BankKeeper) BankTokens {
	return BankTokens{bank: bank}
}

// ModuleAddress returns the custody account of the module.
func ModuleAddress() sdk.AccAddress {
	return authtypes.NewModuleAddress(types.ModuleName)
}

// Token implements types.TokenResolver.
func (b BankTokens) Token(denom string) (types.TokenTransfer, error) {
	if err := types.ValidateDenom(denom); err != nil {
		return nil, err
	}
	return bankToken{bank: b.bank, denom: denom}, nil
}

type bankToken struct {
	bank  types.BankKeeper
	denom string
}

func (t bankToken) PullFrom(ctx context.Context, owner sdk.AccAddress, amount math.Int) error {
	return t.bank.SendCoinsFromAccountToModule(ctx, owner, types.ModuleName, sdk.NewCoins(sdk.NewCoin(t.denom, amount)))
}

func (t bankToken) PushTo(ctx context.Context, recipient sdk.AccAddress, amount math.Int) error {
	return t.bank.SendCoinsFromModuleToAccount(ctx, types.ModuleName, recipient, sdk.NewCoins(sdk.NewCoin(t.denom, amount)))
}

// CustodyBalance implements types.CustodyReader.
func (t bankToken) CustodyBalance(ctx context.Context) (math.Int, error) {
	return t.bank.GetBalance(ctx, ModuleAddress(), t.denom).Amount, nil
}

// TokenRouter dispatches denoms to dedicated adapters and falls back to a
// default resolver for everything else.
type TokenRouter struct {
	routes   map[string]types.TokenTransfer
	fallback types.TokenResolver
}

// NewTokenRouter returns a router with the given fallback, which may be nil.
func NewTokenRouter(fallback types.TokenResolver) *TokenRouter {
	return &TokenRouter{
		routes:   make(map[string]types.TokenTransfer),
		fallback: fallback,
	}
}

// Route registers a dedicated adapter for denom.
func (r *TokenRouter) Route(denom string, token types.TokenTransfer) *TokenRouter {
	r.routes[denom] = token
	return r
}

// Token implements types.TokenResolver.
func (r *TokenRouter) Token(denom string) (types.TokenTransfer, error) {
	if token, ok := r.routes[denom]; ok {
		return token, nil
	}
	if r.fallback == nil {
		return nil, types.ErrInvalidToken.Wrapf("no transfer adapter for %s", denom)
	}
	return r.fallback.Token(denom)
}

// pullToken moves amount of denom from owner into custody.
func (k Keeper) pullToken(ctx context.Context, denom string, owner sdk.AccAddress, amount math.Int) error {
	if !amount.IsPositive() {
		return nil
	}
	token, err := k.tokens.Token(denom)
	if err != nil {
		return err
	}
	if err := token.PullFrom(ctx, owner, amount); err != nil {
		return newTransferError(err, "pull %s%s from %s", amount, denom, owner)
	}
	return nil
}

// pushToken moves amount of denom out of custody to recipient.
func (k Keeper) pushToken(ctx context.Context, denom string, recipient sdk.AccAddress, amount math.Int) error {
	if !amount.IsPositive() {
		return nil
	}
	token, err := k.tokens.Token(denom)
	if err != nil {
		return err
	}
	if err := token.PushTo(ctx, recipient, amount); err != nil {
		return newTransferError(err, "push %s%s to %s", amount, denom, recipient)
	}
	return nil
}

// transferError reports ErrTransferFailed while keeping the collaborator's
// error matchable with errors.Is. ABCI code lookup follows Cause.
type transferError struct {
	err   error
	cause error
}

func newTransferError(cause error, format string, args ...any) error {
	return &transferError{
		err:   types.ErrTransferFailed.Wrapf(format, args...),
		cause: cause,
	}
}

func (e *transferError) Error() string {
	return fmt.Sprintf("%s: %s", e.err, e.cause)
}

// Cause returns the registered dex error.
func (e *transferError) Cause() error { return e.err }

func (e *transferError) Unwrap() []error { return []error{e.err, e.cause} }
