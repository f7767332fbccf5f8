package domain

import (
	"strings"
)

type Address string

const EmptyAddress = Address("0x0000000000000000000000000000000000000000")

// NativeMint marks accounts holding the ledger's native value instead of a token.
const NativeMint = Address("native")

func (a Address) ToLower() Address {
	return Address(strings.ToLower(string(a)))
}

func (a Address) ToLowerStr() string {
	return strings.ToLower(string(a))
}

func (a Address) IsEmpty() bool {
	return len(a) == 0
}

func (a Address) Equals(b Address) bool {
	return a.ToLowerStr() == b.ToLowerStr()
}

func (a Address) String() string {
	return string(a)
}

// Timestamp is unix seconds of the hosting ledger clock.
type Timestamp int64

type Table string

const (
	TableMints           Table = "mints"
	TableTokenAccounts   Table = "token_accounts"
	TableVaultConfigs    Table = "reward_vault_configs"
	TableRegistryConfigs Table = "loyalty_registry_configs"
	TableLoyaltyProfiles Table = "loyalty_profiles"
	TableStakingPools    Table = "staking_pools"
	TableStakePositions  Table = "stake_positions"
	TableListings        Table = "listings"
	TableEscrowVaults    Table = "escrow_vaults"
	TableSaleReceipts    Table = "sale_receipts"
)

type SortDir int

const (
	SortDirAsc SortDir = iota
	SortDirDesc
)

// SortString turns a field and direction into the store's sort argument.
func SortString(field string, dir SortDir) string {
	if dir == SortDirDesc {
		return "-" + field
	}
	return field
}
