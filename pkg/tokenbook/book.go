// Package tokenbook keeps fungible token balances in a KV store and exposes the
// bank keeper surface the dex module needs. It backs the sandbox and tests in
// place of a full bank module.
package tokenbook

import (
	"context"
	"fmt"

	"cosmossdk.io/math"
	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/cosmos/cosmos-sdk/types/address"
	sdkerrors "github.com/cosmos/cosmos-sdk/types/errors"
	authtypes "github.com/cosmos/cosmos-sdk/x/auth/types"
)

// StoreKey is the store key of the token book.
const StoreKey = "tokenbook"

var (
	balanceKeyPrefix = []byte{0x01}
	blockedKeyPrefix = []byte{0x02}
)

// Book stores balances under (address, denom).
type Book struct {
	storeKey storetypes.StoreKey
}

// NewBook returns a Book over key.
func NewBook(key storetypes.StoreKey) *Book {
	return &Book{storeKey: key}
}

func (b *Book) store(ctx context.Context) storetypes.KVStore {
	return sdk.UnwrapSDKContext(ctx).KVStore(b.storeKey)
}

func balanceKey(addr sdk.AccAddress, denom string) []byte {
	key := append([]byte{}, balanceKeyPrefix...)
	key = append(key, address.MustLengthPrefix(addr)...)
	return append(key, []byte(denom)...)
}

func blockedKey(addr sdk.AccAddress) []byte {
	return append(append([]byte{}, blockedKeyPrefix...), address.MustLengthPrefix(addr)...)
}

// GetBalance returns the balance of addr in denom.
func (b *Book) GetBalance(ctx context.Context, addr sdk.AccAddress, denom string) sdk.Coin {
	bz := b.store(ctx).Get(balanceKey(addr, denom))
	if bz == nil {
		return sdk.NewCoin(denom, math.ZeroInt())
	}
	var amount math.Int
	if err := amount.Unmarshal(bz); err != nil {
		panic(fmt.Errorf("tokenbook: corrupt balance of %s in %s: %w", addr, denom, err))
	}
	return sdk.NewCoin(denom, amount)
}

func (b *Book) setBalance(ctx context.Context, addr sdk.AccAddress, coin sdk.Coin) error {
	store := b.store(ctx)
	if coin.Amount.IsZero() {
		store.Delete(balanceKey(addr, coin.Denom))
		return nil
	}
	bz, err := coin.Amount.Marshal()
	if err != nil {
		return err
	}
	store.Set(balanceKey(addr, coin.Denom), bz)
	return nil
}

// Mint credits coins to addr out of thin air.
func (b *Book) Mint(ctx context.Context, addr sdk.AccAddress, coins sdk.Coins) error {
	if !coins.IsValid() {
		return sdkerrors.ErrInvalidCoins.Wrap(coins.String())
	}
	for _, coin := range coins {
		balance := b.GetBalance(ctx, addr, coin.Denom)
		if err := b.setBalance(ctx, addr, balance.Add(coin)); err != nil {
			return err
		}
	}
	return nil
}

// BlockAddr makes every transfer to addr fail. Used to exercise push failures.
func (b *Book) BlockAddr(ctx context.Context, addr sdk.AccAddress) {
	b.store(ctx).Set(blockedKey(addr), []byte{1})
}

// UnblockAddr reverses BlockAddr.
func (b *Book) UnblockAddr(ctx context.Context, addr sdk.AccAddress) {
	b.store(ctx).Delete(blockedKey(addr))
}

// BlockedAddr reports whether addr refuses incoming transfers.
func (b *Book) BlockedAddr(ctx context.Context, addr sdk.AccAddress) bool {
	return b.store(ctx).Has(blockedKey(addr))
}

// SendCoins moves coins between two accounts. Either every coin moves or none does.
func (b *Book) SendCoins(ctx context.Context, from, to sdk.AccAddress, coins sdk.Coins) error {
	if !coins.IsValid() {
		return sdkerrors.ErrInvalidCoins.Wrap(coins.String())
	}
	if b.BlockedAddr(ctx, to) {
		return sdkerrors.ErrUnauthorized.Wrapf("%s is not allowed to receive funds", to)
	}

	for _, coin := range coins {
		balance := b.GetBalance(ctx, from, coin.Denom)
		if balance.IsLT(coin) {
			return sdkerrors.ErrInsufficientFunds.Wrapf("spendable balance %s is smaller than %s", balance, coin)
		}
	}
	for _, coin := range coins {
		if err := b.setBalance(ctx, from, b.GetBalance(ctx, from, coin.Denom).Sub(coin)); err != nil {
			return err
		}
		if err := b.setBalance(ctx, to, b.GetBalance(ctx, to, coin.Denom).Add(coin)); err != nil {
			return err
		}
	}
	return nil
}

// SendCoinsFromAccountToModule moves coins into a module account.
func (b *Book) SendCoinsFromAccountToModule(ctx context.Context, senderAddr sdk.AccAddress, recipientModule string, amt sdk.Coins) error {
	return b.SendCoins(ctx, senderAddr, authtypes.NewModuleAddress(recipientModule), amt)
}

// SendCoinsFromModuleToAccount moves coins out of a module account.
func (b *Book) SendCoinsFromModuleToAccount(ctx context.Context, senderModule string, recipientAddr sdk.AccAddress, amt sdk.Coins) error {
	return b.SendCoins(ctx, authtypes.NewModuleAddress(senderModule), recipientAddr, amt)
}
