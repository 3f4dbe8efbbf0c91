package types

import (
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// TokenPair is a token pair in canonical order: Low sorts strictly before High.
// Reserves are always addressed through a TokenPair so that (X, Y) and (Y, X)
// resolve to the same record.
type TokenPair struct {
	Low  string `json:"low"`
	High string `json:"high"`
}

// ValidateDenom checks a token identifier.
func ValidateDenom(denom string) error {
	if err := sdk.ValidateDenom(denom); err != nil {
		return ErrInvalidToken.Wrapf("%q: %v", denom, err)
	}
	return nil
}

// NewTokenPair canonicalizes two token identifiers. It fails with
// ErrIdenticalTokens when both identifiers are equal.
func NewTokenPair(tokenA, tokenB string) (TokenPair, error) {
	if err := ValidateDenom(tokenA); err != nil {
		return TokenPair{}, err
	}
	if err := ValidateDenom(tokenB); err != nil {
		return TokenPair{}, err
	}
	if tokenA == tokenB {
		return TokenPair{}, ErrIdenticalTokens.Wrapf("%s/%s", tokenA, tokenB)
	}
	if tokenA > tokenB {
		tokenA, tokenB = tokenB, tokenA
	}
	return TokenPair{Low: tokenA, High: tokenB}, nil
}

// String returns "low/high".
func (p TokenPair) String() string {
	return p.Low + "/" + p.High
}

// Contains reports whether token is one side of the pair.
func (p TokenPair) Contains(token string) bool {
	return token == p.Low || token == p.High
}

// Other returns the opposite side of token.
func (p TokenPair) Other(token string) string {
	if token == p.Low {
		return p.High
	}
	return p.Low
}

// Orient returns the reserves as seen from token: first the reserve of token,
// then the reserve of the other side.
func (p TokenPair) Orient(token string, r Reserves) (math.Int, math.Int) {
	if token == p.Low {
		return r.Low, r.High
	}
	return r.High, r.Low
}

// Deltas maps a change expressed from token's point of view onto canonical
// (low, high) slots.
func (p TokenPair) Deltas(token string, deltaToken, deltaOther math.Int) (math.Int, math.Int) {
	if token == p.Low {
		return deltaToken, deltaOther
	}
	return deltaOther, deltaToken
}
