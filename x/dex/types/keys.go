package types

import (
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/cosmos/cosmos-sdk/types/address"
)

const (
	// ModuleName defines the module name
	ModuleName = "dex"

	// StoreKey defines the primary module store key
	StoreKey = ModuleName

	// RouterKey defines the module's message routing key
	RouterKey = ModuleName

	// QuerierRoute defines the module's query routing key
	QuerierRoute = ModuleName
)

// LockedSharesAddress holds the minimum liquidity minted at pool bootstrap under the
// fee-less policy. No key controls it, so its balance can never be moved or burned.
var LockedSharesAddress = sdk.AccAddress(address.Module(ModuleName, []byte("locked-liquidity")))
