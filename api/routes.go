package api

// registerRoutes registers all API routes
func (s *Server) registerRoutes() {
	api := s.router.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", s.handleRegister)
			auth.POST("/login", s.handleLogin)
			auth.POST("/recover", s.handleRecover)
		}

		// Public reads
		api.GET("/pairs", s.handleGetPairs)
		api.GET("/pairs/:tokenA/:tokenB", s.handleGetPair)
		api.GET("/price/:tokenA/:tokenB", s.handleGetPrice)
		api.GET("/quote", s.handleGetQuote)
		api.GET("/shares/:address", s.handleGetShares)

		// Writes act on the authenticated user's account
		protected := api.Group("")
		protected.Use(s.AuthMiddleware())
		{
			protected.POST("/liquidity/deposit", s.handleDepositLiquidity)
			protected.POST("/liquidity/withdraw", s.handleWithdrawLiquidity)
			protected.POST("/swap", s.handleSwap)
			protected.POST("/shares/approve", s.handleApprove)
			protected.POST("/shares/transfer", s.handleTransferShares)
			protected.POST("/shares/transfer-from", s.handleTransferSharesFrom)
		}
	}
}
