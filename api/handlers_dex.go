package api

import (
	"net/http"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/gin-gonic/gin"

	"github.com/paw-chain/pawdex/x/dex/types"
)

// handleGetPairs lists every pair that has ever held reserves.
func (s *Server) handleGetPairs(c *gin.Context) {
	var pairs []types.PairReserves
	err := s.sandbox.Query(c.Request.Context(), func(ctx sdk.Context) error {
		var err error
		pairs, err = s.sandbox.Keeper().AllReserves(ctx)
		return err
	})
	if err != nil {
		s.respondError(c, err)
		return
	}

	resp := make([]PairResponse, 0, len(pairs))
	for _, p := range pairs {
		resp = append(resp, PairResponse{
			TokenLow:    p.Pair.Low,
			TokenHigh:   p.Pair.High,
			ReserveLow:  p.Reserves.Low.String(),
			ReserveHigh: p.Reserves.High.String(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"pairs": resp, "height": s.sandbox.Height()})
}

// handleGetPair returns one pair's reserves in the order of the path.
func (s *Server) handleGetPair(c *gin.Context) {
	tokenA, tokenB := c.Param("tokenA"), c.Param("tokenB")
	err := s.sandbox.Query(c.Request.Context(), func(ctx sdk.Context) error {
		reserves, err := s.sandbox.Keeper().Reserves(ctx, tokenA, tokenB)
		if err != nil {
			return err
		}
		c.JSON(http.StatusOK, reserves)
		return nil
	})
	if err != nil {
		s.respondError(c, err)
	}
}

func (s *Server) handleGetPrice(c *gin.Context) {
	tokenA, tokenB := c.Param("tokenA"), c.Param("tokenB")
	var price math.Int
	err := s.sandbox.Query(c.Request.Context(), func(ctx sdk.Context) error {
		var err error
		price, err = s.sandbox.Keeper().GetPrice(ctx, tokenA, tokenB)
		return err
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, PriceResponse{
		TokenA:   tokenA,
		TokenB:   tokenB,
		Price:    price.String(),
		Decimals: types.PriceDecimals,
	})
}

// handleGetQuote prices a swap without executing it.
func (s *Server) handleGetQuote(c *gin.Context) {
	tokenIn, tokenOut := c.Query("token_in"), c.Query("token_out")
	amountIn, err := parseAmount("amount_in", c.Query("amount_in"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	var out math.Int
	err = s.sandbox.Query(c.Request.Context(), func(ctx sdk.Context) error {
		var err error
		out, err = s.sandbox.Keeper().QuoteSwap(ctx, amountIn, tokenIn, tokenOut)
		return err
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, QuoteResponse{
		TokenIn:   tokenIn,
		TokenOut:  tokenOut,
		AmountIn:  amountIn.String(),
		AmountOut: out.String(),
		Policy:    s.sandbox.Keeper().Policy().String(),
	})
}

func (s *Server) handleGetShares(c *gin.Context) {
	addr, err := parseAddress("address", c.Param("address"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	var balance, total math.Int
	err = s.sandbox.Query(c.Request.Context(), func(ctx sdk.Context) error {
		var err error
		if balance, err = s.sandbox.Keeper().BalanceOf(ctx, addr); err != nil {
			return err
		}
		total, err = s.sandbox.Keeper().TotalShares(ctx)
		return err
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SharesResponse{
		Address:     addr.String(),
		Balance:     balance.String(),
		TotalShares: total.String(),
	})
}

func (s *Server) handleDepositLiquidity(c *gin.Context) {
	var req DepositLiquidityRequest
	if !bindJSON(c, &req) {
		return
	}
	provider, ok := s.caller(c)
	if !ok {
		return
	}

	dreq := types.DepositRequest{
		Provider: provider,
		TokenA:   req.TokenA,
		TokenB:   req.TokenB,
		Deadline: req.Deadline,
	}
	var err error
	if dreq.AmountADesired, err = parseAmount("amount_a_desired", req.AmountADesired); err != nil {
		s.respondError(c, err)
		return
	}
	if dreq.AmountBDesired, err = parseAmount("amount_b_desired", req.AmountBDesired); err != nil {
		s.respondError(c, err)
		return
	}
	if dreq.AmountAMin, err = parseOptionalAmount("amount_a_min", req.AmountAMin); err != nil {
		s.respondError(c, err)
		return
	}
	if dreq.AmountBMin, err = parseOptionalAmount("amount_b_min", req.AmountBMin); err != nil {
		s.respondError(c, err)
		return
	}
	if dreq.Recipient, err = recipientOrCaller(req.Recipient, provider); err != nil {
		s.respondError(c, err)
		return
	}

	res, err := s.sandbox.Deposit(c.Request.Context(), dreq)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, DepositLiquidityResponse{
		AmountA: res.AmountA.String(),
		AmountB: res.AmountB.String(),
		Shares:  res.Shares.String(),
		Height:  s.sandbox.Height(),
	})
}

func (s *Server) handleWithdrawLiquidity(c *gin.Context) {
	var req WithdrawLiquidityRequest
	if !bindJSON(c, &req) {
		return
	}
	provider, ok := s.caller(c)
	if !ok {
		return
	}

	wreq := types.WithdrawRequest{
		Provider: provider,
		TokenA:   req.TokenA,
		TokenB:   req.TokenB,
		Deadline: req.Deadline,
	}
	var err error
	if wreq.Shares, err = parseAmount("shares", req.Shares); err != nil {
		s.respondError(c, err)
		return
	}
	if wreq.AmountAMin, err = parseOptionalAmount("amount_a_min", req.AmountAMin); err != nil {
		s.respondError(c, err)
		return
	}
	if wreq.AmountBMin, err = parseOptionalAmount("amount_b_min", req.AmountBMin); err != nil {
		s.respondError(c, err)
		return
	}
	if wreq.Recipient, err = recipientOrCaller(req.Recipient, provider); err != nil {
		s.respondError(c, err)
		return
	}

	res, err := s.sandbox.Withdraw(c.Request.Context(), wreq)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, WithdrawLiquidityResponse{
		AmountA: res.AmountA.String(),
		AmountB: res.AmountB.String(),
		Height:  s.sandbox.Height(),
	})
}

func (s *Server) handleSwap(c *gin.Context) {
	var req SwapRequest
	if !bindJSON(c, &req) {
		return
	}
	trader, ok := s.caller(c)
	if !ok {
		return
	}

	sreq := types.SwapRequest{
		Trader:   trader,
		Path:     req.Path,
		Deadline: req.Deadline,
	}
	var err error
	if sreq.AmountIn, err = parseAmount("amount_in", req.AmountIn); err != nil {
		s.respondError(c, err)
		return
	}
	if sreq.AmountOutMin, err = parseOptionalAmount("amount_out_min", req.AmountOutMin); err != nil {
		s.respondError(c, err)
		return
	}
	if sreq.Recipient, err = recipientOrCaller(req.Recipient, trader); err != nil {
		s.respondError(c, err)
		return
	}

	res, err := s.sandbox.Swap(c.Request.Context(), sreq)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SwapResponse{
		TokenIn:   sreq.TokenIn(),
		TokenOut:  sreq.TokenOut(),
		AmountIn:  res.AmountIn.String(),
		AmountOut: res.AmountOut.String(),
		Height:    s.sandbox.Height(),
	})
}

func (s *Server) handleApprove(c *gin.Context) {
	var req ApproveRequest
	if !bindJSON(c, &req) {
		return
	}
	owner, ok := s.caller(c)
	if !ok {
		return
	}
	spender, err := parseAddress("spender", req.Spender)
	if err != nil {
		s.respondError(c, err)
		return
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		s.respondError(c, err)
		return
	}

	if err := s.sandbox.Approve(c.Request.Context(), owner, spender, amount); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Success: true, Message: "Allowance updated"})
}

func (s *Server) handleTransferShares(c *gin.Context) {
	var req TransferRequest
	if !bindJSON(c, &req) {
		return
	}
	from, ok := s.caller(c)
	if !ok {
		return
	}
	to, err := parseAddress("to", req.To)
	if err != nil {
		s.respondError(c, err)
		return
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		s.respondError(c, err)
		return
	}

	if err := s.sandbox.Transfer(c.Request.Context(), from, to, amount); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Success: true, Message: "Shares transferred"})
}

func (s *Server) handleTransferSharesFrom(c *gin.Context) {
	var req TransferFromRequest
	if !bindJSON(c, &req) {
		return
	}
	spender, ok := s.caller(c)
	if !ok {
		return
	}
	from, err := parseAddress("from", req.From)
	if err != nil {
		s.respondError(c, err)
		return
	}
	to, err := parseAddress("to", req.To)
	if err != nil {
		s.respondError(c, err)
		return
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		s.respondError(c, err)
		return
	}

	if err := s.sandbox.TransferFrom(c.Request.Context(), spender, from, to, amount); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Success: true, Message: "Shares transferred"})
}

// caller returns the account of the authenticated user. It writes a 401 and
// reports false when the token carried no usable address.
func (s *Server) caller(c *gin.Context) (sdk.AccAddress, bool) {
	addr, err := sdk.AccAddressFromBech32(c.GetString(contextKeyAddress))
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "Token carries no valid address",
			Code:    "UNAUTHORIZED",
			Details: err.Error(),
		})
		return nil, false
	}
	return addr, true
}

func (s *Server) respondError(c *gin.Context, err error) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("dex operation failed", "path", c.FullPath(), "request_id", c.GetString(contextKeyRequestID), "error", err)
	}
	_ = c.Error(err)
	c.JSON(status, newErrorResponse(err))
}

func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request",
			Code:    "INVALID_REQUEST",
			Details: err.Error(),
		})
		return false
	}
	return true
}

func parseAmount(field, value string) (math.Int, error) {
	amount, ok := math.NewIntFromString(value)
	if !ok {
		return math.Int{}, types.ErrInvalidAmount.Wrapf("%s: %q is not an integer", field, value)
	}
	if amount.IsNegative() {
		return math.Int{}, types.ErrInvalidAmount.Wrapf("%s: %s is negative", field, amount)
	}
	return amount, nil
}

// parseOptionalAmount treats an empty value as zero, which disables a slippage floor.
func parseOptionalAmount(field, value string) (math.Int, error) {
	if value == "" {
		return math.ZeroInt(), nil
	}
	return parseAmount(field, value)
}

func parseAddress(field, value string) (sdk.AccAddress, error) {
	addr, err := sdk.AccAddressFromBech32(value)
	if err != nil {
		return nil, types.ErrInvalidAddress.Wrapf("%s: %s", field, err)
	}
	return addr, nil
}

func recipientOrCaller(recipient string, caller sdk.AccAddress) (sdk.AccAddress, error) {
	if recipient == "" {
		return caller, nil
	}
	return parseAddress("recipient", recipient)
}
