package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	errorsmod "cosmossdk.io/errors"
	sdkerrors "github.com/cosmos/cosmos-sdk/types/errors"

	"github.com/paw-chain/pawdex/x/dex/types"
)

// RegisterRequest represents a user registration request
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,min=6,max=72"`
	// Mnemonic restores the account of an existing recovery phrase. A new
	// phrase is generated when empty.
	Mnemonic string `json:"mnemonic,omitempty"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RecoverRequest resets a password with the recovery phrase issued at registration.
type RecoverRequest struct {
	Username    string `json:"username" binding:"required"`
	Mnemonic    string `json:"mnemonic" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6,max=72"`
}

// AuthResponse represents an authentication response
type AuthResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
	Username  string `json:"username"`
	UserID    string `json:"user_id"`
	Address   string `json:"address"`
}

// User represents a registered API user. Address is the account the user
// trades and provides liquidity from.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	RecoveryHash string    `json:"-"`
	Address      string    `json:"address"`
	CreatedAt    time.Time `json:"created_at"`
}

// DepositLiquidityRequest adds liquidity from the authenticated user.
type DepositLiquidityRequest struct {
	TokenA         string    `json:"token_a" binding:"required"`
	TokenB         string    `json:"token_b" binding:"required"`
	AmountADesired string    `json:"amount_a_desired" binding:"required"`
	AmountBDesired string    `json:"amount_b_desired" binding:"required"`
	AmountAMin     string    `json:"amount_a_min"`
	AmountBMin     string    `json:"amount_b_min"`
	Recipient      string    `json:"recipient,omitempty"`
	Deadline       time.Time `json:"deadline" binding:"required"`
}

// DepositLiquidityResponse reports what a deposit took and minted.
type DepositLiquidityResponse struct {
	AmountA string `json:"amount_a"`
	AmountB string `json:"amount_b"`
	Shares  string `json:"shares"`
	Height  int64  `json:"height"`
}

// WithdrawLiquidityRequest burns shares of the authenticated user.
type WithdrawLiquidityRequest struct {
	TokenA     string    `json:"token_a" binding:"required"`
	TokenB     string    `json:"token_b" binding:"required"`
	Shares     string    `json:"shares" binding:"required"`
	AmountAMin string    `json:"amount_a_min"`
	AmountBMin string    `json:"amount_b_min"`
	Recipient  string    `json:"recipient,omitempty"`
	Deadline   time.Time `json:"deadline" binding:"required"`
}

// WithdrawLiquidityResponse reports the tokens paid out by a withdrawal.
type WithdrawLiquidityResponse struct {
	AmountA string `json:"amount_a"`
	AmountB string `json:"amount_b"`
	Height  int64  `json:"height"`
}

// SwapRequest sells an exact input amount along a two token path.
type SwapRequest struct {
	Path         []string  `json:"path" binding:"required,len=2"`
	AmountIn     string    `json:"amount_in" binding:"required"`
	AmountOutMin string    `json:"amount_out_min"`
	Recipient    string    `json:"recipient,omitempty"`
	Deadline     time.Time `json:"deadline" binding:"required"`
}

// SwapResponse reports the executed swap.
type SwapResponse struct {
	TokenIn   string `json:"token_in"`
	TokenOut  string `json:"token_out"`
	AmountIn  string `json:"amount_in"`
	AmountOut string `json:"amount_out"`
	Height    int64  `json:"height"`
}

// QuoteResponse is the output a swap would produce at current reserves.
type QuoteResponse struct {
	TokenIn   string `json:"token_in"`
	TokenOut  string `json:"token_out"`
	AmountIn  string `json:"amount_in"`
	AmountOut string `json:"amount_out"`
	Policy    string `json:"policy"`
}

// PriceResponse is the spot price of token A in token B.
type PriceResponse struct {
	TokenA   string `json:"token_a"`
	TokenB   string `json:"token_b"`
	Price    string `json:"price"`
	Decimals int64  `json:"decimals"`
}

// PairResponse is one pair's reserves in canonical order.
type PairResponse struct {
	TokenLow    string `json:"token_low"`
	TokenHigh   string `json:"token_high"`
	ReserveLow  string `json:"reserve_low"`
	ReserveHigh string `json:"reserve_high"`
}

// SharesResponse is an account's view of the share ledger.
type SharesResponse struct {
	Address     string `json:"address"`
	Balance     string `json:"balance"`
	TotalShares string `json:"total_shares"`
}

// ApproveRequest sets an allowance of the authenticated user.
type ApproveRequest struct {
	Spender string `json:"spender" binding:"required"`
	Amount  string `json:"amount" binding:"required"`
}

// TransferRequest moves shares of the authenticated user.
type TransferRequest struct {
	To     string `json:"to" binding:"required"`
	Amount string `json:"amount" binding:"required"`
}

// TransferFromRequest moves shares of From using the authenticated user's allowance.
type TransferFromRequest struct {
	From   string `json:"from" binding:"required"`
	To     string `json:"to" binding:"required"`
	Amount string `json:"amount" binding:"required"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// SuccessResponse represents a generic success response
type SuccessResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Height    int64     `json:"height"`
	Policy    string    `json:"policy"`
}

// errorStatus maps a dex error to the HTTP status it is reported with.
func errorStatus(err error) int {
	switch {
	// a failed transfer carries the token backend's error as its cause
	case errors.Is(err, types.ErrTransferFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, types.ErrUnauthorized), errors.Is(err, sdkerrors.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, types.ErrInvariantViolation),
		errors.Is(err, types.ErrInvalidState),
		errors.Is(err, types.ErrOverflow):
		return http.StatusInternalServerError
	case errors.Is(err, types.ErrIdenticalTokens),
		errors.Is(err, types.ErrInvalidToken),
		errors.Is(err, types.ErrInvalidAmount),
		errors.Is(err, types.ErrInvalidAddress),
		errors.Is(err, types.ErrInvalidPath),
		errors.Is(err, types.ErrZeroInput),
		errors.Is(err, types.ErrInvalidLiquidity):
		return http.StatusBadRequest
	}
	if codespace, _, _ := errorsmod.ABCIInfo(err, false); codespace == types.ModuleName || codespace == sdkerrors.RootCodespace {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// newErrorResponse builds the body for err. Code is "codespace:code" of the
// registered error so clients can branch on it.
func newErrorResponse(err error) ErrorResponse {
	codespace, code, log := errorsmod.ABCIInfo(err, false)
	resp := ErrorResponse{Error: log}
	if codespace != "" && code != 0 {
		resp.Code = fmt.Sprintf("%s:%d", codespace, code)
	}
	if resp.Error == "" {
		resp.Error = err.Error()
	}
	return resp
}
