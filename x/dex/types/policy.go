package types

import (
	"strings"
)

// Policy selects the fee and minimum-liquidity rules of a keeper. The two rule
// sets are never mixed: a policy fixes both the swap fee and the bootstrap lock.
type Policy uint8

const (
	// PolicyUnspecified is the zero value and is rejected by Validate.
	PolicyUnspecified Policy = iota

	// PolicyFeeBearing charges 0.3% on every swap input. Bootstrap deposits only
	// need to produce a non-zero share count; nothing is locked.
	PolicyFeeBearing

	// PolicyFeeless charges no swap fee and permanently locks MinimumLiquidity
	// shares at bootstrap under LockedSharesAddress.
	PolicyFeeless
)

// DefaultPolicy is the policy used when none is configured.
const DefaultPolicy = PolicyFeeBearing

const (
	// MinimumLiquidity is the share amount locked at bootstrap under PolicyFeeless.
	MinimumLiquidity int64 = 1000

	// FeeNumerator / FeeDenominator is the fraction of the swap input that is
	// priced under PolicyFeeBearing (997/1000, a 0.3% fee).
	FeeNumerator   int64 = 997
	FeeDenominator int64 = 1000

	// PriceDecimals is the number of fractional decimal digits of GetPrice results.
	PriceDecimals = 18
)

var policyNames = map[Policy]string{
	PolicyFeeBearing: "fee-bearing",
	PolicyFeeless:    "feeless",
}

// ParsePolicy converts a configuration string into a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fee-bearing", "fee_bearing", "feebearing":
		return PolicyFeeBearing, nil
	case "feeless", "fee-less", "fee_less":
		return PolicyFeeless, nil
	default:
		return PolicyUnspecified, ErrInvalidPolicy.Wrapf("unknown policy %q", s)
	}
}

// String implements fmt.Stringer.
func (p Policy) String() string {
	if name, ok := policyNames[p]; ok {
		return name
	}
	return "unspecified"
}

// Validate rejects unknown policies.
func (p Policy) Validate() error {
	if _, ok := policyNames[p]; !ok {
		return ErrInvalidPolicy.Wrapf("policy %d", uint8(p))
	}
	return nil
}

// ChargesFee reports whether swaps pay the 0.3% fee.
func (p Policy) ChargesFee() bool {
	return p == PolicyFeeBearing
}

// LocksMinimumLiquidity reports whether bootstrap deposits lock MinimumLiquidity shares.
func (p Policy) LocksMinimumLiquidity() bool {
	return p == PolicyFeeless
}

// MarshalText implements encoding.TextMarshaler.
func (p Policy) MarshalText() ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Policy) UnmarshalText(text []byte) error {
	parsed, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
