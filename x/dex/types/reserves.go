package types

import (
	"fmt"

	"cosmossdk.io/math"
	"github.com/cosmos/cosmos-sdk/types/address"
)

// Reserves are the pooled balances of a canonical pair.
type Reserves struct {
	Low  math.Int `json:"low"`
	High math.Int `json:"high"`
}

// ZeroReserves returns the reserves of a pair that has never been seeded.
func ZeroReserves() Reserves {
	return Reserves{Low: math.ZeroInt(), High: math.ZeroInt()}
}

// IsEmpty reports whether either side is zero.
func (r Reserves) IsEmpty() bool {
	return r.Low.IsZero() || r.High.IsZero()
}

// Product returns Low * High.
func (r Reserves) Product() (math.Int, error) {
	k, err := r.Low.SafeMul(r.High)
	if err != nil {
		return math.Int{}, ErrOverflow.Wrapf("reserve product %s * %s", r.Low, r.High)
	}
	return k, nil
}

// Validate checks that both reserves are set and non-negative.
func (r Reserves) Validate() error {
	if r.Low.IsNil() || r.High.IsNil() {
		return ErrInvalidState.Wrap("reserves must be set")
	}
	if r.Low.IsNegative() || r.High.IsNegative() {
		return ErrReserveUnderflow.Wrapf("negative reserves %s/%s", r.Low, r.High)
	}
	return nil
}

// Marshal encodes the reserves as a length-prefixed low amount followed by the
// high amount.
func (r Reserves) Marshal() ([]byte, error) {
	low, err := r.Low.Marshal()
	if err != nil {
		return nil, err
	}
	high, err := r.High.Marshal()
	if err != nil {
		return nil, err
	}
	prefixed, err := address.LengthPrefix(low)
	if err != nil {
		return nil, err
	}
	return append(prefixed, high...), nil
}

// Unmarshal decodes bytes produced by Marshal.
func (r *Reserves) Unmarshal(bz []byte) error {
	if len(bz) == 0 {
		return ErrInvalidState.Wrap("empty reserves encoding")
	}
	n := int(bz[0])
	if len(bz) < 1+n {
		return ErrInvalidState.Wrap(fmt.Sprintf("reserves encoding too short: %d < %d", len(bz), 1+n))
	}

	var low, high math.Int
	if err := low.Unmarshal(bz[1 : 1+n]); err != nil {
		return ErrInvalidState.Wrapf("decode low reserve: %v", err)
	}
	if err := high.Unmarshal(bz[1+n:]); err != nil {
		return ErrInvalidState.Wrapf("decode high reserve: %v", err)
	}
	r.Low, r.High = low, high
	return nil
}
