package types

import (
	"time"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// DepositRequest asks to add liquidity to the tokenA/tokenB pair.
type DepositRequest struct {
	Provider       sdk.AccAddress
	TokenA         string
	TokenB         string
	AmountADesired math.Int
	AmountBDesired math.Int
	AmountAMin     math.Int
	AmountBMin     math.Int
	Recipient      sdk.AccAddress
	Deadline       time.Time
}

// DepositResult reports the amounts actually pulled and the shares minted.
type DepositResult struct {
	AmountA math.Int
	AmountB math.Int
	Shares  math.Int
}

// ValidateBasic performs stateless checks.
func (r DepositRequest) ValidateBasic() error {
	if err := validateAddress("provider", r.Provider); err != nil {
		return err
	}
	if err := validateAddress("recipient", r.Recipient); err != nil {
		return err
	}
	return checkAmounts(
		namedAmount{"amount a desired", r.AmountADesired},
		namedAmount{"amount b desired", r.AmountBDesired},
		namedAmount{"amount a min", r.AmountAMin},
		namedAmount{"amount b min", r.AmountBMin},
	)
}

// WithdrawRequest asks to burn shares against the tokenA/tokenB pair.
type WithdrawRequest struct {
	Provider   sdk.AccAddress
	TokenA     string
	TokenB     string
	Shares     math.Int
	AmountAMin math.Int
	AmountBMin math.Int
	Recipient  sdk.AccAddress
	Deadline   time.Time
}

// WithdrawResult reports the amounts paid out, oriented to TokenA/TokenB.
type WithdrawResult struct {
	AmountA math.Int
	AmountB math.Int
}

// ValidateBasic performs stateless checks.
func (r WithdrawRequest) ValidateBasic() error {
	if err := validateAddress("provider", r.Provider); err != nil {
		return err
	}
	if err := validateAddress("recipient", r.Recipient); err != nil {
		return err
	}
	return checkAmounts(
		namedAmount{"shares", r.Shares},
		namedAmount{"amount a min", r.AmountAMin},
		namedAmount{"amount b min", r.AmountBMin},
	)
}

// SwapRequest asks to sell exactly AmountIn of Path[0] for Path[1].
type SwapRequest struct {
	Trader       sdk.AccAddress
	Path         []string
	AmountIn     math.Int
	AmountOutMin math.Int
	Recipient    sdk.AccAddress
	Deadline     time.Time
}

// SwapResult reports the executed amounts.
type SwapResult struct {
	AmountIn  math.Int
	AmountOut math.Int
}

// ValidateBasic performs stateless checks. Only direct two-token routes are
// supported.
func (r SwapRequest) ValidateBasic() error {
	if len(r.Path) != 2 {
		return ErrInvalidPath.Wrapf("expected 2 tokens, got %d", len(r.Path))
	}
	if err := validateAddress("trader", r.Trader); err != nil {
		return err
	}
	if err := validateAddress("recipient", r.Recipient); err != nil {
		return err
	}
	if err := checkAmount("amount in", r.AmountIn); err != nil {
		return err
	}
	return checkAmount("amount out min", r.AmountOutMin)
}

// TokenIn returns the sold token.
func (r SwapRequest) TokenIn() string { return r.Path[0] }

// TokenOut returns the bought token.
func (r SwapRequest) TokenOut() string { return r.Path[1] }

func validateAddress(name string, addr sdk.AccAddress) error {
	if err := sdk.VerifyAddressFormat(addr); err != nil {
		return ErrInvalidAddress.Wrapf("%s: %v", name, err)
	}
	return nil
}

type namedAmount struct {
	name   string
	amount math.Int
}

// checkAmounts reports the first invalid amount in argument order.
func checkAmounts(amounts ...namedAmount) error {
	for _, a := range amounts {
		if err := checkAmount(a.name, a.amount); err != nil {
			return err
		}
	}
	return nil
}
