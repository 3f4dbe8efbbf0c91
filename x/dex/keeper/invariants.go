package keeper

import (
	"fmt"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/paw-chain/pawdex/x/dex/types"
)

// RegisterInvariants registers all DEX invariants
func RegisterInvariants(ir sdk.InvariantRegistry, k Keeper) {
	ir.RegisterRoute(types.ModuleName, "share-conservation", ShareConservationInvariant(k))
	ir.RegisterRoute(types.ModuleName, "non-negative-reserves", NonNegativeReservesInvariant(k))
	ir.RegisterRoute(types.ModuleName, "locked-liquidity", LockedLiquidityInvariant(k))
	ir.RegisterRoute(types.ModuleName, "backed-reserves", BackedReservesInvariant(k))
}

// AllInvariants runs all invariants of the DEX module
func AllInvariants(k Keeper) sdk.Invariant {
	return func(ctx sdk.Context) (string, bool) {
		res, stop := ShareConservationInvariant(k)(ctx)
		if stop {
			return res, stop
		}

		res, stop = NonNegativeReservesInvariant(k)(ctx)
		if stop {
			return res, stop
		}

		res, stop = LockedLiquidityInvariant(k)(ctx)
		if stop {
			return res, stop
		}

		return BackedReservesInvariant(k)(ctx)
	}
}

// ShareConservationInvariant checks that balances sum to the share supply.
func ShareConservationInvariant(k Keeper) sdk.Invariant {
	return func(ctx sdk.Context) (string, bool) {
		supply, err := k.TotalShares(ctx)
		if err != nil {
			return sdk.FormatInvariant(types.ModuleName, "share-conservation", err.Error()), true
		}

		sum := math.ZeroInt()
		holders := 0
		if err := k.IterateShareBalances(ctx, func(_ sdk.AccAddress, amount math.Int) bool {
			sum = sum.Add(amount)
			holders++
			return false
		}); err != nil {
			return sdk.FormatInvariant(types.ModuleName, "share-conservation", err.Error()), true
		}

		broken := !sum.Equal(supply)
		return sdk.FormatInvariant(
			types.ModuleName, "share-conservation",
			fmt.Sprintf("\tsum of %d balances: %s\n\ttotal shares: %s\n", holders, sum, supply),
		), broken
	}
}

// NonNegativeReservesInvariant checks that no stored reserve is negative.
func NonNegativeReservesInvariant(k Keeper) sdk.Invariant {
	return func(ctx sdk.Context) (string, bool) {
		var (
			msg   string
			count int
		)

		err := k.IterateReserves(ctx, func(pair types.TokenPair, reserves types.Reserves) bool {
			if reserves.Low.IsNegative() || reserves.High.IsNegative() {
				count++
				msg += fmt.Sprintf("\tpair %s has negative reserves %s/%s\n", pair, reserves.Low, reserves.High)
			}
			return false
		})
		if err != nil {
			return sdk.FormatInvariant(types.ModuleName, "non-negative-reserves", err.Error()), true
		}

		broken := count != 0
		return sdk.FormatInvariant(
			types.ModuleName, "non-negative-reserves",
			fmt.Sprintf("found %d pairs with negative reserves\n%s", count, msg),
		), broken
	}
}

// LockedLiquidityInvariant checks that, under the fee-less policy, the locked
// holder keeps at least MinimumLiquidity shares once any share exists.
func LockedLiquidityInvariant(k Keeper) sdk.Invariant {
	return func(ctx sdk.Context) (string, bool) {
		if !k.policy.LocksMinimumLiquidity() {
			return sdk.FormatInvariant(types.ModuleName, "locked-liquidity", "policy does not lock liquidity\n"), false
		}

		supply, err := k.TotalShares(ctx)
		if err != nil {
			return sdk.FormatInvariant(types.ModuleName, "locked-liquidity", err.Error()), true
		}
		locked, err := k.BalanceOf(ctx, types.LockedSharesAddress)
		if err != nil {
			return sdk.FormatInvariant(types.ModuleName, "locked-liquidity", err.Error()), true
		}

		broken := supply.IsPositive() && locked.LT(math.NewInt(types.MinimumLiquidity))
		return sdk.FormatInvariant(
			types.ModuleName, "locked-liquidity",
			fmt.Sprintf("\tlocked shares: %s\n\ttotal shares: %s\n", locked, supply),
		), broken
	}
}

// BackedReservesInvariant checks that reserves are only held while shares
// exist to claim them.
func BackedReservesInvariant(k Keeper) sdk.Invariant {
	return func(ctx sdk.Context) (string, bool) {
		supply, err := k.TotalShares(ctx)
		if err != nil {
			return sdk.FormatInvariant(types.ModuleName, "backed-reserves", err.Error()), true
		}
		if supply.IsPositive() {
			return sdk.FormatInvariant(types.ModuleName, "backed-reserves", "shares outstanding\n"), false
		}

		var unbacked []string
		err = k.IterateReserves(ctx, func(pair types.TokenPair, reserves types.Reserves) bool {
			if reserves.Low.IsPositive() || reserves.High.IsPositive() {
				unbacked = append(unbacked, pair.String())
			}
			return false
		})
		if err != nil {
			return sdk.FormatInvariant(types.ModuleName, "backed-reserves", err.Error()), true
		}

		return sdk.FormatInvariant(
			types.ModuleName, "backed-reserves",
			fmt.Sprintf("\tno shares outstanding but %d pairs hold reserves: %v\n", len(unbacked), unbacked),
		), len(unbacked) != 0
	}
}
