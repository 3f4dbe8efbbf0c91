package types

import (
	"cosmossdk.io/errors"
)

// DEX module sentinel errors
var (
	ErrIdenticalTokens             = errors.Register(ModuleName, 2, "identical tokens")
	ErrExpired                     = errors.Register(ModuleName, 3, "deadline expired")
	ErrInsufficientAmountA         = errors.Register(ModuleName, 4, "insufficient amount of token A")
	ErrInsufficientAmountB         = errors.Register(ModuleName, 5, "insufficient amount of token B")
	ErrInsufficientOutputAmount    = errors.Register(ModuleName, 6, "insufficient output amount")
	ErrInsufficientLiquidity       = errors.Register(ModuleName, 7, "insufficient liquidity")
	ErrNoLiquidity                 = errors.Register(ModuleName, 8, "no liquidity")
	ErrInvalidLiquidity            = errors.Register(ModuleName, 9, "invalid liquidity amount")
	ErrZeroInitialLiquidity        = errors.Register(ModuleName, 10, "initial liquidity too small")
	ErrInvalidPath                 = errors.Register(ModuleName, 11, "invalid swap path")
	ErrZeroInput                   = errors.Register(ModuleName, 12, "input amount cannot be zero")
	ErrInsufficientBalance         = errors.Register(ModuleName, 13, "insufficient share balance")
	ErrInsufficientAllowance       = errors.Register(ModuleName, 14, "insufficient share allowance")
	ErrReserveUnderflow            = errors.Register(ModuleName, 15, "reserve underflow")
	ErrOverflow                    = errors.Register(ModuleName, 16, "arithmetic overflow")
	ErrInvalidToken                = errors.Register(ModuleName, 17, "invalid token denomination")
	ErrInvalidAmount               = errors.Register(ModuleName, 18, "invalid amount")
	ErrTransferFailed              = errors.Register(ModuleName, 19, "token transfer failed")
	ErrInsufficientLiquidityMinted = errors.Register(ModuleName, 20, "insufficient liquidity minted")
	ErrLockedShares                = errors.Register(ModuleName, 21, "locked liquidity shares cannot move")
	ErrUnauthorized                = errors.Register(ModuleName, 22, "unauthorized")
	ErrInvalidAddress              = errors.Register(ModuleName, 23, "invalid address")
	ErrInvalidPolicy               = errors.Register(ModuleName, 24, "invalid fee policy")
	ErrInvalidGenesis              = errors.Register(ModuleName, 25, "invalid genesis state")
	ErrInvalidState                = errors.Register(ModuleName, 26, "invalid store state")
	ErrInvariantViolation          = errors.Register(ModuleName, 27, "constant product invariant violated")
)
