// Package authority derives custody and signing identities from stable seeds.
//
// A derived identity has no private credential: a program proves it may act
// for the identity by holding a Signer built from the same program, role and
// seeds, and every account handed to a program is checked against the
// derivation before it is trusted.
package authority

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/x-xyz/cloutledger/domain"
)

// Role tags the purpose of a derived identity.
type Role string

const (
	RolePool           Role = "pool"
	RolePoolVault      Role = "pool-vault"
	RolePoolSigner     Role = "pool-signer"
	RolePosition       Role = "position"
	RoleListing        Role = "listing"
	RoleEscrowVault    Role = "escrow"
	RoleReceipt        Role = "receipt"
	RoleProfile        Role = "profile"
	RoleRegistryConfig Role = "registry-config"
	RoleVaultConfig    Role = "vault-config"
	RoleVaultSigner    Role = "vault-signer"
)

var (
	// SystemProgram owns plain value-holding accounts.
	SystemProgram = domain.EmptyAddress

	StakingProgram = Program("clout_staking")
	EscrowProgram  = Program("market_escrow")
	RewardsProgram = Program("rewards_vault")
	LoyaltyProgram = Program("loyalty_registry")
)

// Program returns the identity of a named program.
func Program(name string) domain.Address {
	return toAddress(crypto.Keccak256([]byte("program"), []byte(name)))
}

// Derive returns the identity owned by program for role and seeds.
func Derive(program domain.Address, role Role, seeds ...[]byte) domain.Address {
	data := make([][]byte, 0, len(seeds)+2)
	data = append(data, common.HexToAddress(string(program)).Bytes(), []byte(role))
	data = append(data, seeds...)
	return toAddress(crypto.Keccak256(data...))
}

// Seed converts an address into derivation seed bytes.
func Seed(a domain.Address) []byte {
	return common.HexToAddress(string(a)).Bytes()
}

// Uint64Seed encodes v little-endian, matching how listing ids are seeded.
func Uint64Seed(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

func toAddress(hash []byte) domain.Address {
	return domain.Address(common.BytesToAddress(hash[12:]).Hex()).ToLower()
}
