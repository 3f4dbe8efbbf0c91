package keeper

import (
	"fmt"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/cosmos/cosmos-sdk/types/address"

	"github.com/paw-chain/pawdex/x/dex/types"
)

var (
	// ReservesKeyPrefix is the prefix for per-pair reserve records
	ReservesKeyPrefix = []byte{0x01}

	// TotalSharesKey stores the share supply
	TotalSharesKey = []byte{0x02}

	// ShareBalanceKeyPrefix is the prefix for share balances
	ShareBalanceKeyPrefix = []byte{0x03}

	// ShareAllowanceKeyPrefix is the prefix for (owner, spender) allowances
	ShareAllowanceKeyPrefix = []byte{0x04}
)

// ReservesKey returns the store key of a canonical pair. Both denoms are length
// prefixed so that no two pairs share a key.
func ReservesKey(pair types.TokenPair) []byte {
	key := append([]byte{}, ReservesKeyPrefix...)
	key = append(key, address.MustLengthPrefix([]byte(pair.Low))...)
	return append(key, address.MustLengthPrefix([]byte(pair.High))...)
}

// ShareBalanceKey returns the store key of a share balance.
func ShareBalanceKey(addr sdk.AccAddress) []byte {
	return append(append([]byte{}, ShareBalanceKeyPrefix...), address.MustLengthPrefix(addr)...)
}

// ShareAllowanceKey returns the store key of an allowance.
func ShareAllowanceKey(owner, spender sdk.AccAddress) []byte {
	key := append([]byte{}, ShareAllowanceKeyPrefix...)
	key = append(key, address.MustLengthPrefix(owner)...)
	return append(key, address.MustLengthPrefix(spender)...)
}

// splitLengthPrefixed reads one length-prefixed segment off the front of bz.
func splitLengthPrefixed(bz []byte) (segment, rest []byte, err error) {
	if len(bz) == 0 {
		return nil, nil, fmt.Errorf("missing length prefix")
	}
	n := int(bz[0])
	if len(bz) < 1+n {
		return nil, nil, fmt.Errorf("segment length %d exceeds remaining %d bytes", n, len(bz)-1)
	}
	return bz[1 : 1+n], bz[1+n:], nil
}

// parseReservesKey recovers the pair from a key with ReservesKeyPrefix stripped.
func parseReservesKey(bz []byte) (types.TokenPair, error) {
	low, rest, err := splitLengthPrefixed(bz)
	if err != nil {
		return types.TokenPair{}, fmt.Errorf("parseReservesKey: low: %w", err)
	}
	high, rest, err := splitLengthPrefixed(rest)
	if err != nil {
		return types.TokenPair{}, fmt.Errorf("parseReservesKey: high: %w", err)
	}
	if len(rest) != 0 {
		return types.TokenPair{}, fmt.Errorf("parseReservesKey: %d trailing bytes", len(rest))
	}
	return types.TokenPair{Low: string(low), High: string(high)}, nil
}

// parseShareBalanceKey recovers the holder from a key with ShareBalanceKeyPrefix stripped.
func parseShareBalanceKey(bz []byte) (sdk.AccAddress, error) {
	addr, rest, err := splitLengthPrefixed(bz)
	if err != nil || len(rest) != 0 {
		return nil, fmt.Errorf("parseShareBalanceKey: malformed key %X", bz)
	}
	return sdk.AccAddress(addr), nil
}

// parseShareAllowanceKey recovers (owner, spender) from a key with
// ShareAllowanceKeyPrefix stripped.
func parseShareAllowanceKey(bz []byte) (sdk.AccAddress, sdk.AccAddress, error) {
	owner, rest, err := splitLengthPrefixed(bz)
	if err != nil {
		return nil, nil, fmt.Errorf("parseShareAllowanceKey: owner: %w", err)
	}
	spender, rest, err := splitLengthPrefixed(rest)
	if err != nil || len(rest) != 0 {
		return nil, nil, fmt.Errorf("parseShareAllowanceKey: malformed spender in %X", bz)
	}
	return sdk.AccAddress(owner), sdk.AccAddress(spender), nil
}
