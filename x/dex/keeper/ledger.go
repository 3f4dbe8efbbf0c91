package keeper

import (
	"context"

	"cosmossdk.io/math"
	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/paw-chain/pawdex/x/dex/types"
)

// The share ledger is a single fungible token shared by every pair of the
// keeper. Zero balances and allowances are deleted rather than stored.

// TotalShares returns the share supply.
func (k Keeper) TotalShares(ctx context.Context) (math.Int, error) {
	return k.readAmount(ctx, TotalSharesKey)
}

// BalanceOf returns the share balance of addr.
func (k Keeper) BalanceOf(ctx context.Context, addr sdk.AccAddress) (math.Int, error) {
	return k.readAmount(ctx, ShareBalanceKey(addr))
}

// Allowance returns how many of owner's shares spender may move.
func (k Keeper) Allowance(ctx context.Context, owner, spender sdk.AccAddress) (math.Int, error) {
	return k.readAmount(ctx, ShareAllowanceKey(owner, spender))
}

// Mint creates shares for to.
func (k Keeper) Mint(ctx context.Context, to sdk.AccAddress, amount math.Int) error {
	if err := validateShareAmount(amount); err != nil {
		return err
	}
	if err := validateHolder("to", to); err != nil {
		return err
	}

	supply, err := k.TotalShares(ctx)
	if err != nil {
		return err
	}
	balance, err := k.BalanceOf(ctx, to)
	if err != nil {
		return err
	}

	newSupply, err := supply.SafeAdd(amount)
	if err != nil {
		return types.ErrOverflow.Wrap("share supply")
	}
	newBalance, err := balance.SafeAdd(amount)
	if err != nil {
		return types.ErrOverflow.Wrapf("share balance of %s", to)
	}

	if err := k.writeAmount(ctx, TotalSharesKey, newSupply); err != nil {
		return err
	}
	if err := k.writeAmount(ctx, ShareBalanceKey(to), newBalance); err != nil {
		return err
	}

	sdk.UnwrapSDKContext(ctx).EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeShareMint,
			sdk.NewAttribute(types.AttributeKeyTo, to.String()),
			sdk.NewAttribute(types.AttributeKeyAmount, amount.String()),
		),
	)
	return nil
}

// Burn destroys shares held by from.
func (k Keeper) Burn(ctx context.Context, from sdk.AccAddress, amount math.Int) error {
	if err := validateShareAmount(amount); err != nil {
		return err
	}
	if from.Equals(types.LockedSharesAddress) {
		return types.ErrLockedShares
	}

	balance, err := k.BalanceOf(ctx, from)
	if err != nil {
		return err
	}
	if balance.LT(amount) {
		return types.ErrInsufficientBalance.Wrapf("%s has %s, burning %s", from, balance, amount)
	}
	supply, err := k.TotalShares(ctx)
	if err != nil {
		return err
	}
	if supply.LT(amount) {
		k.Logger(ctx).Error("share supply below holder balance", "supply", supply.String(), "holder", from.String(), "balance", balance.String())
		return types.ErrInvariantViolation.Wrapf("supply %s < burn %s", supply, amount)
	}

	newSupply := supply.Sub(amount)
	if err := k.writeAmount(ctx, TotalSharesKey, newSupply); err != nil {
		return err
	}
	if err := k.writeAmount(ctx, ShareBalanceKey(from), balance.Sub(amount)); err != nil {
		return err
	}

	sdk.UnwrapSDKContext(ctx).EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeShareBurn,
			sdk.NewAttribute(types.AttributeKeyFrom, from.String()),
			sdk.NewAttribute(types.AttributeKeyAmount, amount.String()),
		),
	)
	return nil
}

// Approve sets spender's allowance over owner's shares, replacing any previous value.
func (k Keeper) Approve(ctx context.Context, owner, spender sdk.AccAddress, amount math.Int) error {
	return k.executeAtomic(ctx, OpApprove, func(ctx sdk.Context) error {
		return k.approve(ctx, owner, spender, amount)
	})
}

func (k Keeper) approve(ctx context.Context, owner, spender sdk.AccAddress, amount math.Int) error {
	if err := validateShareAmount(amount); err != nil {
		return err
	}
	if err := validateHolder("owner", owner); err != nil {
		return err
	}
	if err := validateHolder("spender", spender); err != nil {
		return err
	}
	if owner.Equals(types.LockedSharesAddress) {
		return types.ErrLockedShares
	}

	if err := k.writeAmount(ctx, ShareAllowanceKey(owner, spender), amount); err != nil {
		return err
	}

	sdk.UnwrapSDKContext(ctx).EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeShareApproval,
			sdk.NewAttribute(types.AttributeKeyOwner, owner.String()),
			sdk.NewAttribute(types.AttributeKeySpender, spender.String()),
			sdk.NewAttribute(types.AttributeKeyAmount, amount.String()),
		),
	)
	return nil
}

// Transfer moves shares from one holder to another. It never touches reserves.
func (k Keeper) Transfer(ctx context.Context, from, to sdk.AccAddress, amount math.Int) error {
	return k.executeAtomic(ctx, OpTransfer, func(ctx sdk.Context) error {
		return k.transfer(ctx, from, to, amount)
	})
}

// TransferFrom moves shares on behalf of from, consuming spender's allowance.
// The allowance is checked before the balance.
func (k Keeper) TransferFrom(ctx context.Context, spender, from, to sdk.AccAddress, amount math.Int) error {
	return k.executeAtomic(ctx, OpTransferFrom, func(ctx sdk.Context) error {
		if err := validateShareAmount(amount); err != nil {
			return err
		}

		allowance, err := k.Allowance(ctx, from, spender)
		if err != nil {
			return err
		}
		if allowance.LT(amount) {
			return types.ErrInsufficientAllowance.Wrapf("%s may spend %s of %s, requested %s", spender, allowance, from, amount)
		}
		if err := k.writeAmount(ctx, ShareAllowanceKey(from, spender), allowance.Sub(amount)); err != nil {
			return err
		}

		return k.transfer(ctx, from, to, amount)
	})
}

func (k Keeper) transfer(ctx context.Context, from, to sdk.AccAddress, amount math.Int) error {
	if err := validateShareAmount(amount); err != nil {
		return err
	}
	if err := validateHolder("to", to); err != nil {
		return err
	}
	if from.Equals(types.LockedSharesAddress) {
		return types.ErrLockedShares
	}

	fromBalance, err := k.BalanceOf(ctx, from)
	if err != nil {
		return err
	}
	if fromBalance.LT(amount) {
		return types.ErrInsufficientBalance.Wrapf("%s has %s, sending %s", from, fromBalance, amount)
	}
	if err := k.writeAmount(ctx, ShareBalanceKey(from), fromBalance.Sub(amount)); err != nil {
		return err
	}

	toBalance, err := k.BalanceOf(ctx, to)
	if err != nil {
		return err
	}
	newTo, err := toBalance.SafeAdd(amount)
	if err != nil {
		return types.ErrOverflow.Wrapf("share balance of %s", to)
	}
	if err := k.writeAmount(ctx, ShareBalanceKey(to), newTo); err != nil {
		return err
	}

	sdk.UnwrapSDKContext(ctx).EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeShareTransfer,
			sdk.NewAttribute(types.AttributeKeyFrom, from.String()),
			sdk.NewAttribute(types.AttributeKeyTo, to.String()),
			sdk.NewAttribute(types.AttributeKeyAmount, amount.String()),
		),
	)
	return nil
}

// IterateShareBalances calls cb for every non-zero balance until cb returns true.
func (k Keeper) IterateShareBalances(ctx context.Context, cb func(holder sdk.AccAddress, amount math.Int) (stop bool)) error {
	iterator := storetypes.KVStorePrefixIterator(k.getStore(ctx), ShareBalanceKeyPrefix)
	defer iterator.Close()

	for ; iterator.Valid(); iterator.Next() {
		holder, err := parseShareBalanceKey(iterator.Key()[len(ShareBalanceKeyPrefix):])
		if err != nil {
			return types.ErrInvalidState.Wrap(err.Error())
		}
		var amount math.Int
		if err := amount.Unmarshal(iterator.Value()); err != nil {
			return types.ErrInvalidState.Wrapf("balance of %s: %v", holder, err)
		}
		if cb(holder, amount) {
			break
		}
	}
	return nil
}

// IterateAllowances calls cb for every non-zero allowance until cb returns true.
func (k Keeper) IterateAllowances(ctx context.Context, cb func(owner, spender sdk.AccAddress, amount math.Int) (stop bool)) error {
	iterator := storetypes.KVStorePrefixIterator(k.getStore(ctx), ShareAllowanceKeyPrefix)
	defer iterator.Close()

	for ; iterator.Valid(); iterator.Next() {
		owner, spender, err := parseShareAllowanceKey(iterator.Key()[len(ShareAllowanceKeyPrefix):])
		if err != nil {
			return types.ErrInvalidState.Wrap(err.Error())
		}
		var amount math.Int
		if err := amount.Unmarshal(iterator.Value()); err != nil {
			return types.ErrInvalidState.Wrapf("allowance %s/%s: %v", owner, spender, err)
		}
		if cb(owner, spender, amount) {
			break
		}
	}
	return nil
}

func (k Keeper) readAmount(ctx context.Context, key []byte) (math.Int, error) {
	bz := k.getStore(ctx).Get(key)
	if bz == nil {
		return math.ZeroInt(), nil
	}
	var amount math.Int
	if err := amount.Unmarshal(bz); err != nil {
		return math.Int{}, types.ErrInvalidState.Wrapf("decode amount at %X: %v", key, err)
	}
	return amount, nil
}

func (k Keeper) writeAmount(ctx context.Context, key []byte, amount math.Int) error {
	store := k.getStore(ctx)
	if amount.IsZero() {
		store.Delete(key)
		return nil
	}
	bz, err := amount.Marshal()
	if err != nil {
		return types.ErrInvalidState.Wrapf("encode amount at %X: %v", key, err)
	}
	store.Set(key, bz)
	return nil
}

func validateShareAmount(amount math.Int) error {
	if amount.IsNil() || amount.IsNegative() {
		return types.ErrInvalidAmount.Wrapf("share amount %s", amount)
	}
	return nil
}

func validateHolder(name string, addr sdk.AccAddress) error {
	if err := sdk.VerifyAddressFormat(addr); err != nil {
		return types.ErrInvalidAddress.Wrapf("%s: %v", name, err)
	}
	return nil
}
