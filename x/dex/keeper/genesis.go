package keeper

import (
	"context"
	"fmt"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/paw-chain/pawdex/x/dex/types"
)

// InitGenesis loads reserves, share balances and allowances. The share supply is
// derived from the balances.
func (k Keeper) InitGenesis(ctx context.Context, genState types.GenesisState) error {
	if err := genState.Validate(); err != nil {
		return fmt.Errorf("InitGenesis: validate: %w", err)
	}
	if genState.Policy != k.policy {
		return types.ErrInvalidGenesis.Wrapf("genesis policy %s does not match keeper policy %s", genState.Policy, k.policy)
	}

	for _, pr := range genState.Reserves {
		if err := k.setReserves(ctx, pr.Pair, pr.Reserves); err != nil {
			return fmt.Errorf("InitGenesis: reserves %s: %w", pr.Pair, err)
		}
	}

	for _, b := range genState.Balances {
		holder, err := sdk.AccAddressFromBech32(b.Address)
		if err != nil {
			return fmt.Errorf("InitGenesis: balance address: %w", err)
		}
		if err := k.Mint(ctx, holder, b.Amount); err != nil {
			return fmt.Errorf("InitGenesis: balance of %s: %w", b.Address, err)
		}
	}

	for _, a := range genState.Allowances {
		owner, err := sdk.AccAddressFromBech32(a.Owner)
		if err != nil {
			return fmt.Errorf("InitGenesis: allowance owner: %w", err)
		}
		spender, err := sdk.AccAddressFromBech32(a.Spender)
		if err != nil {
			return fmt.Errorf("InitGenesis: allowance spender: %w", err)
		}
		if err := k.approve(ctx, owner, spender, a.Amount); err != nil {
			return fmt.Errorf("InitGenesis: allowance %s/%s: %w", a.Owner, a.Spender, err)
		}
	}

	sdkCtx := sdk.UnwrapSDKContext(ctx)
	if msg, broken := AllInvariants(k)(sdkCtx); broken {
		return types.ErrInvalidGenesis.Wrap(msg)
	}
	k.refreshGauges(sdkCtx, sdkCtx.EventManager().Events())
	return nil
}

// ExportGenesis returns the module's exported genesis.
func (k Keeper) ExportGenesis(ctx context.Context) (*types.GenesisState, error) {
	genState := types.DefaultGenesis()
	genState.Policy = k.policy

	reserves, err := k.AllReserves(ctx)
	if err != nil {
		return nil, fmt.Errorf("ExportGenesis: reserves: %w", err)
	}
	if reserves != nil {
		genState.Reserves = reserves
	}

	if err := k.IterateShareBalances(ctx, func(holder sdk.AccAddress, amount math.Int) bool {
		genState.Balances = append(genState.Balances, types.ShareBalance{Address: holder.String(), Amount: amount})
		return false
	}); err != nil {
		return nil, fmt.Errorf("ExportGenesis: balances: %w", err)
	}

	if err := k.IterateAllowances(ctx, func(owner, spender sdk.AccAddress, amount math.Int) bool {
		genState.Allowances = append(genState.Allowances, types.ShareAllowance{
			Owner:   owner.String(),
			Spender: spender.String(),
			Amount:  amount,
		})
		return false
	}); err != nil {
		return nil, fmt.Errorf("ExportGenesis: allowances: %w", err)
	}

	return genState, nil
}
