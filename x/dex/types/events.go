package types

// Event types for the DEX module
const (
	EventTypeDepositLiquidity  = "dex_deposit_liquidity"
	EventTypeWithdrawLiquidity = "dex_withdraw_liquidity"
	EventTypeSwap              = "dex_swap"
	EventTypeReservesUpdated   = "dex_reserves_updated"
	EventTypeRecoverTokens     = "dex_recover_tokens"

	// Share ledger events
	EventTypeShareMint     = "dex_share_mint"
	EventTypeShareBurn     = "dex_share_burn"
	EventTypeShareTransfer = "dex_share_transfer"
	EventTypeShareApproval = "dex_share_approval"
)

// Event attribute keys
const (
	AttributeKeyPair        = "pair"
	AttributeKeyProvider    = "provider"
	AttributeKeyRecipient   = "recipient"
	AttributeKeyTrader      = "trader"
	AttributeKeyTokenA      = "token_a"
	AttributeKeyTokenB      = "token_b"
	AttributeKeyAmountA     = "amount_a"
	AttributeKeyAmountB     = "amount_b"
	AttributeKeyShares      = "shares"
	AttributeKeyTokenIn     = "token_in"
	AttributeKeyTokenOut    = "token_out"
	AttributeKeyAmountIn    = "amount_in"
	AttributeKeyAmountOut   = "amount_out"
	AttributeKeyTokenLow    = "token_low"
	AttributeKeyTokenHigh   = "token_high"
	AttributeKeyReserveLow  = "reserve_low"
	AttributeKeyReserveHigh = "reserve_high"
	AttributeKeyOwner       = "owner"
	AttributeKeySpender     = "spender"
	AttributeKeyFrom        = "from"
	AttributeKeyTo          = "to"
	AttributeKeyAmount      = "amount"
	AttributeKeyDenom       = "denom"
)
