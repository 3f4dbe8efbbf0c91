package api

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sdk "github.com/cosmos/cosmos-sdk/types"
	sdkerrors "github.com/cosmos/cosmos-sdk/types/errors"
	"github.com/cosmos/go-bip39"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paw-chain/pawdex/pkg/sandbox"
	keepertest "github.com/paw-chain/pawdex/testutil/keeper"
	"github.com/paw-chain/pawdex/x/dex/types"
)

const (
	denomA = "uatom"
	denomB = "uusdc"
)

// setupTestServer creates a test server over an empty fee-bearing sandbox
func setupTestServer(t *testing.T) (*Server, *sandbox.Sandbox) {
	t.Helper()
	sb, err := sandbox.New(sandbox.Config{
		Policy:    types.PolicyFeeBearing,
		Authority: keepertest.Authority,
		Now:       func() time.Time { return keepertest.GenesisTime },
	})
	require.NoError(t, err)

	config := DefaultConfig()
	config.JWTSecret = []byte("test-secret-0123456789")
	config.CORSOrigins = []string{"*"}
	config.RateLimitRPS = 1000

	server, err := NewServer(sb, config, nil)
	require.NoError(t, err)
	return server, sb
}

func doRequest(t *testing.T, s *Server, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// registerAndLogin registers username, funds its account and returns a token.
func registerAndLogin(t *testing.T, s *Server, sb *sandbox.Sandbox, username string, fund int64) (string, sdk.AccAddress) {
	t.Helper()
	w := doRequest(t, s, http.MethodPost, "/api/auth/register", RegisterRequest{Username: username, Password: "password123"}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	registered := decode[registerData](t, w)

	w = doRequest(t, s, http.MethodPost, "/api/auth/login", LoginRequest{Username: username, Password: "password123"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	auth := decode[AuthResponse](t, w)

	addr := AccountAddress(registered.Data["recovery_phrase"])
	require.Equal(t, addr.String(), auth.Address)
	require.Equal(t, registered.Data["address"], auth.Address)
	if fund > 0 {
		require.NoError(t, sb.Fund(context.Background(), addr, sdk.NewCoins(
			sdk.NewInt64Coin(denomA, fund),
			sdk.NewInt64Coin(denomB, fund),
		)))
	}
	return auth.Token, addr
}

type registerData struct {
	Data map[string]string `json:"data"`
}

func deposit(t *testing.T, s *Server, token string) *httptest.ResponseRecorder {
	t.Helper()
	return doRequest(t, s, http.MethodPost, "/api/liquidity/deposit", DepositLiquidityRequest{
		TokenA:         denomA,
		TokenB:         denomB,
		AmountADesired: "1000",
		AmountBDesired: "4000",
		Deadline:       keepertest.Deadline(),
	}, token)
}

func TestHealthCheck(t *testing.T) {
	server, _ := setupTestServer(t)

	w := doRequest(t, server, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	resp := decode[HealthResponse](t, w)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "fee-bearing", resp.Policy)
	assert.NotEmpty(t, w.Header().Get(headerRequestID))
}

func TestMetricsEndpoint(t *testing.T) {
	server, _ := setupTestServer(t)

	w := doRequest(t, server, http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "# TYPE")
}

func TestUserRegistration(t *testing.T) {
	server, _ := setupTestServer(t)

	tests := []struct {
		name           string
		payload        RegisterRequest
		expectedStatus int
	}{
		{"successful registration", RegisterRequest{Username: "newuser", Password: "password123"}, http.StatusCreated},
		{"duplicate username", RegisterRequest{Username: "NewUser", Password: "password123"}, http.StatusConflict},
		{"short password", RegisterRequest{Username: "other", Password: "123"}, http.StatusBadRequest},
		{"short username", RegisterRequest{Username: "ab", Password: "password123"}, http.StatusBadRequest},
		{"password over 72 characters", RegisterRequest{Username: "other", Password: strings.Repeat("a", 73)}, http.StatusBadRequest},
		{"password over 72 bytes", RegisterRequest{Username: "other", Password: strings.Repeat("é", 40)}, http.StatusBadRequest},
		{"invalid recovery phrase", RegisterRequest{Username: "other", Password: "password123", Mnemonic: "not a phrase"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, server, http.MethodPost, "/api/auth/register", tt.payload, "")
			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
		})
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	server, sb := setupTestServer(t)
	registerAndLogin(t, server, sb, "alice", 0)

	w := doRequest(t, server, http.MethodPost, "/api/auth/login", LoginRequest{Username: "alice", Password: "wrong-password"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterIssuesUsablePhrases(t *testing.T) {
	as := NewAuthService([]byte("test-secret-0123456789"), time.Hour)

	for i := 0; i < 20; i++ {
		user, phrase, err := as.Register(fmt.Sprintf("user%02d", i), "password123", "")
		require.NoError(t, err)
		require.True(t, bip39.IsMnemonicValid(phrase))
		require.Equal(t, AccountAddress(phrase).String(), user.Address)

		_, err = as.Recover(user.Username, phrase, "password456")
		require.NoError(t, err)
	}
}

func TestAccountFollowsPhraseNotUsername(t *testing.T) {
	first, sb := setupTestServer(t)
	w := doRequest(t, first, http.MethodPost, "/api/auth/register", RegisterRequest{Username: "alice", Password: "password123"}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	original := decode[registerData](t, w).Data

	// A restarted server has no users; the name alone must not reach alice's account.
	config := DefaultConfig()
	config.JWTSecret = []byte("test-secret-0123456789")
	config.RateLimitRPS = 1000
	restarted, err := NewServer(sb, config, nil)
	require.NoError(t, err)
	w = doRequest(t, restarted, http.MethodPost, "/api/auth/register", RegisterRequest{Username: "alice", Password: "password123"}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotEqual(t, original["address"], decode[registerData](t, w).Data["address"])

	restored, err := NewServer(sb, config, nil)
	require.NoError(t, err)
	w = doRequest(t, restored, http.MethodPost, "/api/auth/register", RegisterRequest{
		Username: "alice",
		Password: "password123",
		Mnemonic: "  " + strings.ReplaceAll(original["recovery_phrase"], " ", "\n") + " ",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	data := decode[registerData](t, w).Data
	assert.Equal(t, original["address"], data["address"])
	assert.NotContains(t, data, "recovery_phrase")
}

func TestRecoverWithPhrase(t *testing.T) {
	server, _ := setupTestServer(t)

	w := doRequest(t, server, http.MethodPost, "/api/auth/register", RegisterRequest{Username: "alice", Password: "password123"}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	phrase := decode[registerData](t, w).Data["recovery_phrase"]
	require.True(t, bip39.IsMnemonicValid(phrase), phrase)

	w = doRequest(t, server, http.MethodPost, "/api/auth/recover", RecoverRequest{
		Username: "alice", Mnemonic: "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about", NewPassword: "new-password",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(t, server, http.MethodPost, "/api/auth/recover", RecoverRequest{
		Username: "ALICE", Mnemonic: "  " + phrase + " ", NewPassword: "new-password",
	}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doRequest(t, server, http.MethodPost, "/api/auth/login", LoginRequest{Username: "alice", Password: "password123"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = doRequest(t, server, http.MethodPost, "/api/auth/login", LoginRequest{Username: "alice", Password: "new-password"}, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestResponsesAreCompressed(t *testing.T) {
	server, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
	zr, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	var resp HealthResponse
	require.NoError(t, json.NewDecoder(zr).Decode(&resp))
	assert.Equal(t, "healthy", resp.Status)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	server, _ := setupTestServer(t)

	for _, path := range []string{
		"/api/liquidity/deposit",
		"/api/liquidity/withdraw",
		"/api/swap",
		"/api/shares/approve",
		"/api/shares/transfer",
		"/api/shares/transfer-from",
	} {
		w := doRequest(t, server, http.MethodPost, path, emptyBody{}, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)

		w = doRequest(t, server, http.MethodPost, path, emptyBody{}, "not-a-jwt")
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

// emptyBody is an empty JSON object body.
type emptyBody struct{}

func TestDepositQuoteAndSwap(t *testing.T) {
	server, sb := setupTestServer(t)
	aliceToken, alice := registerAndLogin(t, server, sb, "alice", 1_000_000)
	bobToken, bob := registerAndLogin(t, server, sb, "bob", 1_000_000)

	w := deposit(t, server, aliceToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	dep := decode[DepositLiquidityResponse](t, w)
	assert.Equal(t, "1000", dep.AmountA)
	assert.Equal(t, "4000", dep.AmountB)
	assert.Equal(t, "2000", dep.Shares)

	w = doRequest(t, server, http.MethodGet, "/api/quote?token_in=uatom&token_out=uusdc&amount_in=100", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	quote := decode[QuoteResponse](t, w)
	assert.Equal(t, "362", quote.AmountOut)

	w = doRequest(t, server, http.MethodPost, "/api/swap", SwapRequest{
		Path:         []string{denomA, denomB},
		AmountIn:     "100",
		AmountOutMin: "362",
		Deadline:     keepertest.Deadline(),
	}, bobToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	swap := decode[SwapResponse](t, w)
	assert.Equal(t, "362", swap.AmountOut)
	assert.Equal(t, denomB, swap.TokenOut)

	bal, err := sb.Balance(context.Background(), bob, denomB)
	require.NoError(t, err)
	assert.Equal(t, "1000362", bal.Amount.String())

	w = doRequest(t, server, http.MethodGet, "/api/pairs/uusdc/uatom", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	pair := decode[map[string]string](t, w)
	assert.Equal(t, "3638", pair["reserve_a"])
	assert.Equal(t, "1100", pair["reserve_b"])

	w = doRequest(t, server, http.MethodGet, "/api/pairs", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	pairs := decode[struct {
		Pairs []PairResponse `json:"pairs"`
	}](t, w)
	require.Len(t, pairs.Pairs, 1)
	assert.Equal(t, denomA, pairs.Pairs[0].TokenLow)

	w = doRequest(t, server, http.MethodGet, "/api/shares/"+alice.String(), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	shares := decode[SharesResponse](t, w)
	assert.Equal(t, "2000", shares.Balance)
	assert.Equal(t, "2000", shares.TotalShares)
}

func TestSwapBelowFloorIsRejected(t *testing.T) {
	server, sb := setupTestServer(t)
	aliceToken, _ := registerAndLogin(t, server, sb, "alice", 1_000_000)
	bobToken, _ := registerAndLogin(t, server, sb, "bob", 1_000_000)
	require.Equal(t, http.StatusOK, deposit(t, server, aliceToken).Code)
	height := sb.Height()

	w := doRequest(t, server, http.MethodPost, "/api/swap", SwapRequest{
		Path:         []string{denomA, denomB},
		AmountIn:     "100",
		AmountOutMin: "363",
		Deadline:     keepertest.Deadline(),
	}, bobToken)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decode[ErrorResponse](t, w)
	assert.Equal(t, "dex:6", resp.Code)
	assert.Equal(t, height, sb.Height())
}

func TestExpiredDeadlineIsRejected(t *testing.T) {
	server, sb := setupTestServer(t)
	aliceToken, _ := registerAndLogin(t, server, sb, "alice", 1_000_000)

	w := doRequest(t, server, http.MethodPost, "/api/liquidity/deposit", DepositLiquidityRequest{
		TokenA:         denomA,
		TokenB:         denomB,
		AmountADesired: "1000",
		AmountBDesired: "4000",
		Deadline:       keepertest.GenesisTime.Add(-time.Second),
	}, aliceToken)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "dex:3", decode[ErrorResponse](t, w).Code)
}

func TestInvalidAmountIsBadRequest(t *testing.T) {
	server, sb := setupTestServer(t)
	aliceToken, _ := registerAndLogin(t, server, sb, "alice", 1_000_000)

	w := doRequest(t, server, http.MethodPost, "/api/liquidity/deposit", DepositLiquidityRequest{
		TokenA:         denomA,
		TokenB:         denomB,
		AmountADesired: "ten",
		AmountBDesired: "4000",
		Deadline:       keepertest.Deadline(),
	}, aliceToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, server, http.MethodGet, "/api/quote?token_in=uatom&token_out=uatom&amount_in=1", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWithdrawAndShareTransfers(t *testing.T) {
	server, sb := setupTestServer(t)
	aliceToken, alice := registerAndLogin(t, server, sb, "alice", 1_000_000)
	bobToken, bob := registerAndLogin(t, server, sb, "bob", 0)
	_, carol := registerAndLogin(t, server, sb, "carol", 0)
	require.Equal(t, http.StatusOK, deposit(t, server, aliceToken).Code)

	w := doRequest(t, server, http.MethodPost, "/api/shares/transfer", TransferRequest{To: bob.String(), Amount: "500"}, aliceToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doRequest(t, server, http.MethodPost, "/api/shares/transfer-from", TransferFromRequest{
		From: alice.String(), To: carol.String(), Amount: "100",
	}, bobToken)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "dex:14", decode[ErrorResponse](t, w).Code)

	w = doRequest(t, server, http.MethodPost, "/api/shares/approve", ApproveRequest{Spender: bob.String(), Amount: "300"}, aliceToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doRequest(t, server, http.MethodPost, "/api/shares/transfer-from", TransferFromRequest{
		From: alice.String(), To: carol.String(), Amount: "100",
	}, bobToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doRequest(t, server, http.MethodPost, "/api/liquidity/withdraw", WithdrawLiquidityRequest{
		TokenA:   denomA,
		TokenB:   denomB,
		Shares:   "500",
		Deadline: keepertest.Deadline(),
	}, bobToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := decode[WithdrawLiquidityResponse](t, w)
	assert.Equal(t, "250", out.AmountA)
	assert.Equal(t, "1000", out.AmountB)

	for addr, want := range map[string]string{alice.String(): "1400", bob.String(): "0", carol.String(): "100"} {
		w = doRequest(t, server, http.MethodGet, "/api/shares/"+addr, nil, "")
		require.Equal(t, http.StatusOK, w.Code)
		shares := decode[SharesResponse](t, w)
		assert.Equal(t, want, shares.Balance, addr)
		assert.Equal(t, "1500", shares.TotalShares)
	}
}

func TestRateLimit(t *testing.T) {
	server, _ := setupTestServer(t)
	server.limiter = NewIPRateLimiter(1)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, doRequest(t, server, http.MethodGet, "/health", nil, "").Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestConfigValidate(t *testing.T) {
	config := DefaultConfig()
	require.Error(t, config.Validate())

	config.JWTSecret = []byte("0123456789abcdef")
	require.NoError(t, config.Validate())

	config.RateLimitRPS = 0
	require.Error(t, config.Validate())
}

func TestErrorStatus(t *testing.T) {
	assert.Equal(t, http.StatusForbidden, errorStatus(types.ErrUnauthorized))
	assert.Equal(t, http.StatusBadRequest, errorStatus(types.ErrIdenticalTokens.Wrap("uatom")))
	assert.Equal(t, http.StatusUnprocessableEntity, errorStatus(types.ErrNoLiquidity))
	blocked := errors.Join(types.ErrTransferFailed.Wrap("push 10uatom"), sdkerrors.ErrUnauthorized)
	assert.Equal(t, http.StatusUnprocessableEntity, errorStatus(blocked))
	assert.Equal(t, http.StatusInternalServerError, errorStatus(types.ErrInvariantViolation))
	assert.Equal(t, http.StatusInternalServerError, errorStatus(context.Canceled))
}
