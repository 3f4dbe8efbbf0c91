package api

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cometbft/cometbft/crypto/tmhash"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/cosmos/go-bip39"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenIssuer = "pawdex-api"

	// bcrypt rejects longer inputs.
	maxPasswordBytes = 72
)

var (
	errUserExists         = errors.New("username already exists")
	errInvalidCredentials = errors.New("invalid credentials")
	errPasswordTooLong    = fmt.Errorf("password exceeds %d bytes", maxPasswordBytes)
	errInvalidMnemonic    = errors.New("invalid recovery phrase")
)

// AuthService handles authentication logic
type AuthService struct {
	jwtSecret []byte
	tokenTTL  time.Duration

	mu    sync.RWMutex
	users map[string]*User
}

// NewAuthService creates a new authentication service
func NewAuthService(jwtSecret []byte, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		users:     make(map[string]*User),
	}
}

// Claims represents JWT claims
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Address  string `json:"address"`
	jwt.RegisteredClaims
}

// AccountAddress is the account owned by a recovery phrase. Only holders of
// the phrase can register into it, so the account survives a server restart
// without being claimable by whoever registers the same username first.
func AccountAddress(mnemonic string) sdk.AccAddress {
	return sdk.AccAddress(tmhash.SumTruncated(bip39.NewSeed(mnemonic, "pawdex")))
}

// Register creates a user with a bcrypt password hash. When mnemonic is empty a
// new recovery phrase is generated. The phrase is returned once; only its hash
// is kept.
func (as *AuthService) Register(username, password, mnemonic string) (*User, string, error) {
	key := strings.ToLower(username)
	if len(password) > maxPasswordBytes {
		return nil, "", errPasswordTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	if mnemonic == "" {
		entropy := make([]byte, 128/8)
		if _, err := rand.Read(entropy); err != nil {
			return nil, "", fmt.Errorf("generate entropy: %w", err)
		}
		if mnemonic, err = bip39.NewMnemonic(entropy); err != nil {
			return nil, "", fmt.Errorf("generate recovery phrase: %w", err)
		}
	} else {
		mnemonic = normalizeMnemonic(mnemonic)
		if !bip39.IsMnemonicValid(mnemonic) {
			return nil, "", errInvalidMnemonic
		}
	}
	recoveryHash, err := bcrypt.GenerateFromPassword(phraseDigest(mnemonic), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash recovery phrase: %w", err)
	}

	as.mu.Lock()
	defer as.mu.Unlock()
	if _, exists := as.users[key]; exists {
		return nil, "", errUserExists
	}
	user := &User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		RecoveryHash: string(recoveryHash),
		Address:      AccountAddress(mnemonic).String(),
		CreatedAt:    time.Now().UTC(),
	}
	as.users[key] = user
	return user, mnemonic, nil
}

// Recover replaces a user's password after checking the recovery phrase.
func (as *AuthService) Recover(username, mnemonic, newPassword string) (*User, error) {
	if len(newPassword) > maxPasswordBytes {
		return nil, errPasswordTooLong
	}
	mnemonic = normalizeMnemonic(mnemonic)
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, errInvalidCredentials
	}
	user, ok := as.GetUser(username)
	if !ok {
		return nil, errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.RecoveryHash), phraseDigest(mnemonic)); err != nil {
		return nil, errInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	as.mu.Lock()
	user.PasswordHash = string(hash)
	as.mu.Unlock()
	return user, nil
}

func normalizeMnemonic(mnemonic string) string {
	return strings.Join(strings.Fields(mnemonic), " ")
}

// phraseDigest fits a recovery phrase into bcrypt's input limit.
func phraseDigest(mnemonic string) []byte {
	return []byte(hex.EncodeToString(tmhash.Sum([]byte(mnemonic))))
}

// Authenticate checks a username and password.
func (as *AuthService) Authenticate(username, password string) (*User, error) {
	as.mu.RLock()
	user, ok := as.users[strings.ToLower(username)]
	var hash string
	if ok {
		hash = user.PasswordHash
	}
	as.mu.RUnlock()
	if !ok {
		return nil, errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, errInvalidCredentials
	}
	return user, nil
}

// GenerateToken generates a JWT token for a user
func (as *AuthService) GenerateToken(user *User) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:   user.ID,
		Username: user.Username,
		Address:  user.Address,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(as.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   user.ID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(as.jwtSecret)
}

// ValidateToken validates a JWT token and returns the claims
func (as *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return as.jwtSecret, nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// GetUser retrieves a user by username
func (as *AuthService) GetUser(username string) (*User, bool) {
	as.mu.RLock()
	defer as.mu.RUnlock()
	user, exists := as.users[strings.ToLower(username)]
	return user, exists
}

// handleRegister handles user registration
func (s *Server) handleRegister(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request",
			Details: err.Error(),
		})
		return
	}

	user, mnemonic, err := s.authService.Register(req.Username, req.Password, req.Mnemonic)
	if errors.Is(err, errUserExists) {
		c.JSON(http.StatusConflict, ErrorResponse{Error: "Username already exists"})
		return
	}
	if errors.Is(err, errPasswordTooLong) || errors.Is(err, errInvalidMnemonic) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Details: err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to process registration",
			Details: err.Error(),
		})
		return
	}

	s.logger.Info("user registered", "user_id", user.ID, "address", user.Address)
	data := gin.H{
		"user_id":  user.ID,
		"username": user.Username,
		"address":  user.Address,
	}
	if req.Mnemonic == "" {
		data["recovery_phrase"] = mnemonic
	}
	c.JSON(http.StatusCreated, SuccessResponse{
		Success: true,
		Message: "Registration successful",
		Data:    data,
	})
}

// handleLogin handles user login
func (s *Server) handleLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request",
			Details: err.Error(),
		})
		return
	}

	user, err := s.authService.Authenticate(req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid credentials"})
		return
	}

	token, err := s.authService.GenerateToken(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to generate token",
			Details: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, AuthResponse{
		Token:     token,
		ExpiresIn: int64(s.authService.tokenTTL.Seconds()),
		Username:  user.Username,
		UserID:    user.ID,
		Address:   user.Address,
	})
}

// handleRecover resets a password with the registration recovery phrase
func (s *Server) handleRecover(c *gin.Context) {
	var req RecoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request",
			Details: err.Error(),
		})
		return
	}

	user, err := s.authService.Recover(req.Username, req.Mnemonic, req.NewPassword)
	if errors.Is(err, errInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid credentials"})
		return
	}
	if errors.Is(err, errPasswordTooLong) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Details: err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to reset password",
			Details: err.Error(),
		})
		return
	}

	s.logger.Info("password reset with recovery phrase", "user_id", user.ID)
	c.JSON(http.StatusOK, SuccessResponse{Success: true, Message: "Password updated"})
}
