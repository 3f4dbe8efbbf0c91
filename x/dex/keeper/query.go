package keeper

import (
	"context"

	"github.com/paw-chain/pawdex/x/dex/types"
)

// OrientedReserves is a pair's reserves as seen from a caller's token order.
type OrientedReserves struct {
	TokenA   string `json:"token_a"`
	TokenB   string `json:"token_b"`
	ReserveA string `json:"reserve_a"`
	ReserveB string `json:"reserve_b"`
}

// Reserves returns the reserves of the tokenA/tokenB pair oriented to the
// argument order.
func (k Keeper) Reserves(ctx context.Context, tokenA, tokenB string) (OrientedReserves, error) {
	pair, err := types.NewTokenPair(tokenA, tokenB)
	if err != nil {
		return OrientedReserves{}, err
	}
	reserves, err := k.GetReserves(ctx, pair)
	if err != nil {
		return OrientedReserves{}, err
	}
	reserveA, reserveB := pair.Orient(tokenA, reserves)
	return OrientedReserves{
		TokenA:   tokenA,
		TokenB:   tokenB,
		ReserveA: reserveA.String(),
		ReserveB: reserveB.String(),
	}, nil
}
