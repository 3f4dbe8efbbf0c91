package types

import (
	"encoding/json"
	"fmt"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// PairReserves is the genesis record of one pair.
type PairReserves struct {
	Pair     TokenPair `json:"pair"`
	Reserves Reserves  `json:"reserves"`
}

// ShareBalance is the genesis record of one share holder.
type ShareBalance struct {
	Address string   `json:"address"`
	Amount  math.Int `json:"amount"`
}

// ShareAllowance is the genesis record of one spending approval.
type ShareAllowance struct {
	Owner   string   `json:"owner"`
	Spender string   `json:"spender"`
	Amount  math.Int `json:"amount"`
}

// GenesisState is the exported state of the DEX module.
type GenesisState struct {
	Policy     Policy           `json:"policy"`
	Reserves   []PairReserves   `json:"reserves"`
	Balances   []ShareBalance   `json:"balances"`
	Allowances []ShareAllowance `json:"allowances"`
}

// DefaultGenesis returns an empty exchange under DefaultPolicy.
func DefaultGenesis() *GenesisState {
	return &GenesisState{
		Policy:     DefaultPolicy,
		Reserves:   []PairReserves{},
		Balances:   []ShareBalance{},
		Allowances: []ShareAllowance{},
	}
}

// ParseGenesis decodes and validates a JSON genesis document.
func ParseGenesis(bz []byte) (*GenesisState, error) {
	var gs GenesisState
	if err := json.Unmarshal(bz, &gs); err != nil {
		return nil, ErrInvalidGenesis.Wrapf("decode: %v", err)
	}
	if err := gs.Validate(); err != nil {
		return nil, err
	}
	return &gs, nil
}

// TotalShares sums the genesis balances.
func (gs GenesisState) TotalShares() (math.Int, error) {
	total := math.ZeroInt()
	for _, b := range gs.Balances {
		var err error
		total, err = total.SafeAdd(b.Amount)
		if err != nil {
			return math.Int{}, ErrOverflow.Wrap("total shares")
		}
	}
	return total, nil
}

// Validate performs basic genesis state validation.
func (gs GenesisState) Validate() error {
	if err := gs.Policy.Validate(); err != nil {
		return ErrInvalidGenesis.Wrap(err.Error())
	}

	seenPairs := make(map[TokenPair]struct{}, len(gs.Reserves))
	for _, pr := range gs.Reserves {
		canonical, err := NewTokenPair(pr.Pair.Low, pr.Pair.High)
		if err != nil {
			return ErrInvalidGenesis.Wrapf("pair %s: %v", pr.Pair, err)
		}
		if canonical != pr.Pair {
			return ErrInvalidGenesis.Wrapf("pair %s is not in canonical order", pr.Pair)
		}
		if _, dup := seenPairs[pr.Pair]; dup {
			return ErrInvalidGenesis.Wrapf("duplicate pair %s", pr.Pair)
		}
		seenPairs[pr.Pair] = struct{}{}
		if err := pr.Reserves.Validate(); err != nil {
			return ErrInvalidGenesis.Wrapf("pair %s: %v", pr.Pair, err)
		}
	}

	seenHolders := make(map[string]struct{}, len(gs.Balances))
	for _, b := range gs.Balances {
		if _, err := sdk.AccAddressFromBech32(b.Address); err != nil {
			return ErrInvalidGenesis.Wrapf("balance address %q: %v", b.Address, err)
		}
		if _, dup := seenHolders[b.Address]; dup {
			return ErrInvalidGenesis.Wrapf("duplicate balance for %s", b.Address)
		}
		seenHolders[b.Address] = struct{}{}
		if b.Amount.IsNil() || !b.Amount.IsPositive() {
			return ErrInvalidGenesis.Wrapf("balance for %s must be positive", b.Address)
		}
	}

	seenAllowances := make(map[string]struct{}, len(gs.Allowances))
	for _, a := range gs.Allowances {
		if _, err := sdk.AccAddressFromBech32(a.Owner); err != nil {
			return ErrInvalidGenesis.Wrapf("allowance owner %q: %v", a.Owner, err)
		}
		if _, err := sdk.AccAddressFromBech32(a.Spender); err != nil {
			return ErrInvalidGenesis.Wrapf("allowance spender %q: %v", a.Spender, err)
		}
		key := fmt.Sprintf("%s/%s", a.Owner, a.Spender)
		if _, dup := seenAllowances[key]; dup {
			return ErrInvalidGenesis.Wrapf("duplicate allowance %s", key)
		}
		seenAllowances[key] = struct{}{}
		if a.Amount.IsNil() || a.Amount.IsNegative() {
			return ErrInvalidGenesis.Wrapf("allowance %s cannot be negative", key)
		}
	}

	if _, err := gs.TotalShares(); err != nil {
		return ErrInvalidGenesis.Wrap(err.Error())
	}
	return nil
}
