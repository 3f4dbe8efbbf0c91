package types

import (
	"math/big"

	"cosmossdk.io/math"
)

// All functions in this file are pure integer arithmetic. Divisions truncate,
// which for the non-negative operands used here is floor division and always
// rounds in favour of the pool.

var priceScale = math.NewIntWithDecimal(1, PriceDecimals)

// mulDiv returns a * b / c. The caller guarantees c is positive.
func mulDiv(a, b, c math.Int) (math.Int, error) {
	product, err := a.SafeMul(b)
	if err != nil {
		return math.Int{}, ErrOverflow.Wrapf("%s * %s", a, b)
	}
	return product.Quo(c), nil
}

func checkAmount(name string, amount math.Int) error {
	if amount.IsNil() {
		return ErrInvalidAmount.Wrapf("%s must be set", name)
	}
	if amount.IsNegative() {
		return ErrInvalidAmount.Wrapf("%s cannot be negative: %s", name, amount)
	}
	return nil
}

// ComputeOutput returns the amount of the output token paid for amountIn given
// the current reserves, under the fee rule of policy.
//
//	fee-less:    out = in * rOut / (rIn + in)
//	fee-bearing: out = in*997 * rOut / (rIn*1000 + in*997)
func ComputeOutput(policy Policy, amountIn, reserveIn, reserveOut math.Int) (math.Int, error) {
	if err := checkAmount("amount in", amountIn); err != nil {
		return math.Int{}, err
	}
	if amountIn.IsZero() {
		return math.Int{}, ErrZeroInput
	}
	if reserveIn.IsNil() || reserveOut.IsNil() || !reserveIn.IsPositive() || !reserveOut.IsPositive() {
		return math.Int{}, ErrInsufficientLiquidity.Wrapf("reserves %s/%s", reserveIn, reserveOut)
	}

	var numerator, denominator math.Int
	switch policy {
	case PolicyFeeless:
		var err error
		numerator, err = amountIn.SafeMul(reserveOut)
		if err != nil {
			return math.Int{}, ErrOverflow.Wrapf("%s * %s", amountIn, reserveOut)
		}
		denominator, err = reserveIn.SafeAdd(amountIn)
		if err != nil {
			return math.Int{}, ErrOverflow.Wrapf("%s + %s", reserveIn, amountIn)
		}

	case PolicyFeeBearing:
		amountInWithFee, err := amountIn.SafeMul(math.NewInt(FeeNumerator))
		if err != nil {
			return math.Int{}, ErrOverflow.Wrapf("%s * %d", amountIn, FeeNumerator)
		}
		numerator, err = amountInWithFee.SafeMul(reserveOut)
		if err != nil {
			return math.Int{}, ErrOverflow.Wrapf("%s * %s", amountInWithFee, reserveOut)
		}
		scaledReserve, err := reserveIn.SafeMul(math.NewInt(FeeDenominator))
		if err != nil {
			return math.Int{}, ErrOverflow.Wrapf("%s * %d", reserveIn, FeeDenominator)
		}
		denominator, err = scaledReserve.SafeAdd(amountInWithFee)
		if err != nil {
			return math.Int{}, ErrOverflow.Wrapf("%s + %s", scaledReserve, amountInWithFee)
		}

	default:
		return math.Int{}, ErrInvalidPolicy.Wrapf("policy %d", uint8(policy))
	}

	return numerator.Quo(denominator), nil
}

// IntegerSqrt returns floor(sqrt(y)) using the Babylonian iteration
// x = (y/x + x) / 2 started at y/2 + 1. IntegerSqrt(0) = 0 and
// IntegerSqrt(y) = 1 for 1 <= y <= 3. Negative inputs yield zero.
func IntegerSqrt(y math.Int) math.Int {
	if y.IsNil() || !y.IsPositive() {
		return math.ZeroInt()
	}
	if y.LTE(math.NewInt(3)) {
		return math.OneInt()
	}

	n := y.BigInt()
	two := big.NewInt(2)
	z := new(big.Int).Set(n)
	x := new(big.Int).Quo(n, two)
	x.Add(x, big.NewInt(1))
	for x.Cmp(z) < 0 {
		z.Set(x)
		x.Quo(n, x)
		x.Add(x, z)
		x.Quo(x, two)
	}
	return math.NewIntFromBigInt(z)
}

// OptimalAmount returns the amount of the other token that matches amount at the
// current reserve ratio: amount * reserveOther / reserveSelf.
func OptimalAmount(amount, reserveSelf, reserveOther math.Int) (math.Int, error) {
	if !reserveSelf.IsPositive() || !reserveOther.IsPositive() {
		return math.Int{}, ErrInsufficientLiquidity.Wrapf("reserves %s/%s", reserveSelf, reserveOther)
	}
	return mulDiv(amount, reserveOther, reserveSelf)
}

// BootstrapShares returns the shares issued to the first depositor and the
// shares locked under LockedSharesAddress.
func BootstrapShares(policy Policy, amountA, amountB math.Int) (issued, locked math.Int, err error) {
	product, err := amountA.SafeMul(amountB)
	if err != nil {
		return math.Int{}, math.Int{}, ErrOverflow.Wrapf("%s * %s", amountA, amountB)
	}
	root := IntegerSqrt(product)

	switch policy {
	case PolicyFeeless:
		minimum := math.NewInt(MinimumLiquidity)
		if root.LTE(minimum) {
			return math.Int{}, math.Int{}, ErrZeroInitialLiquidity.Wrapf(
				"sqrt(%s * %s) = %s does not exceed minimum liquidity %s", amountA, amountB, root, minimum)
		}
		return root.Sub(minimum), minimum, nil

	case PolicyFeeBearing:
		if root.IsZero() {
			return math.Int{}, math.Int{}, ErrZeroInitialLiquidity.Wrapf("sqrt(%s * %s) is zero", amountA, amountB)
		}
		return root, math.ZeroInt(), nil

	default:
		return math.Int{}, math.Int{}, ErrInvalidPolicy.Wrapf("policy %d", uint8(policy))
	}
}

// ProportionalShares returns min(amountA*total/reserveA, amountB*total/reserveB).
// Rounding down on both sides protects existing holders from dilution.
func ProportionalShares(amountA, amountB, reserveA, reserveB, totalShares math.Int) (math.Int, error) {
	if !reserveA.IsPositive() || !reserveB.IsPositive() {
		return math.Int{}, ErrNoLiquidity.Wrapf("reserves %s/%s", reserveA, reserveB)
	}
	sharesA, err := mulDiv(amountA, totalShares, reserveA)
	if err != nil {
		return math.Int{}, err
	}
	sharesB, err := mulDiv(amountB, totalShares, reserveB)
	if err != nil {
		return math.Int{}, err
	}
	return math.MinInt(sharesA, sharesB), nil
}

// WithdrawAmount returns shares * reserve / totalShares.
func WithdrawAmount(shares, reserve, totalShares math.Int) (math.Int, error) {
	if !totalShares.IsPositive() {
		return math.Int{}, ErrInvalidLiquidity.Wrap("no shares outstanding")
	}
	return mulDiv(shares, reserve, totalShares)
}

// ComputePrice returns reserveB * 10^18 / reserveA: the price of one unit of A
// in units of B as a fixed-point number with PriceDecimals fractional digits.
func ComputePrice(reserveA, reserveB math.Int) (math.Int, error) {
	if reserveA.IsNil() || reserveB.IsNil() || !reserveA.IsPositive() || !reserveB.IsPositive() {
		return math.Int{}, ErrNoLiquidity.Wrapf("reserves %s/%s", reserveA, reserveB)
	}
	return mulDiv(reserveB, priceScale, reserveA)
}

// PriceToDec renders a ComputePrice result as a decimal.
func PriceToDec(price math.Int) math.LegacyDec {
	return math.LegacyNewDecFromIntWithPrec(price, PriceDecimals)
}
