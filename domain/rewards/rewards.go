// Package rewards is the reward-minting service: a vault configuration per
// reward mint whose derived signer is the mint authority, so new reward units
// can only be created through MintRewards.
package rewards

import (
	"github.com/x-xyz/cloutledger/base/ctx"
	"github.com/x-xyz/cloutledger/domain"
	"github.com/x-xyz/cloutledger/domain/authority"
)

var (
	ErrUnauthorized         = domain.NewError(domain.KindAuthorization, "Unauthorized", "only the configured authority may perform this action")
	ErrVaultNotFound        = domain.NewError(domain.KindNotFound, "VaultNotFound", "reward vault is not initialized")
	ErrMintAuthority        = domain.NewError(domain.KindValidation, "MintAuthority", "vault signer must be the reward mint authority")
	ErrMismatchedRewardMint = domain.NewError(domain.KindValidation, "MismatchedRewardMint", "reward mint does not match the vault")
)

type VaultConfig struct {
	Address      domain.Address   `json:"address" bson:"_id"`
	Authority    domain.Address   `json:"authority" bson:"authority"`
	RewardMint   domain.Address   `json:"rewardMint" bson:"rewardMint"`
	Signer       domain.Address   `json:"signer" bson:"signer"`
	EmissionRate domain.Amount    `json:"emissionRate" bson:"emissionRate"`
	CreatedAt    domain.Timestamp `json:"createdAt" bson:"createdAt"`
}

// ConfigAddress is the vault configuration derived for rewardMint.
func ConfigAddress(rewardMint domain.Address) domain.Address {
	return authority.Derive(authority.RewardsProgram, authority.RoleVaultConfig, authority.Seed(rewardMint))
}

// SignerFor is the minting capability of the vault for rewardMint.
func SignerFor(rewardMint domain.Address) authority.Signer {
	return authority.NewSigner(authority.RewardsProgram, authority.RoleVaultSigner, authority.Seed(rewardMint))
}

type Repo interface {
	FindOne(c ctx.Ctx, address domain.Address) (*VaultConfig, error)
	Insert(c ctx.Ctx, config *VaultConfig) error
	Upsert(c ctx.Ctx, config *VaultConfig) error
}

type Usecase interface {
	// InitializeVault creates the vault for rewardMint, whose mint authority
	// must already be the derived vault signer.
	InitializeVault(c ctx.Ctx, caller, rewardMint domain.Address) (*VaultConfig, error)
	SetEmissionRate(c ctx.Ctx, caller, vault domain.Address, rate domain.Amount) (*VaultConfig, error)

	// MintRewards creates amount reward units in recipient. caller must be
	// the vault authority and rewardMint the vault's mint.
	MintRewards(c ctx.Ctx, vault, caller, rewardMint, recipient domain.Address, amount domain.Amount) error

	GetVault(c ctx.Ctx, vault domain.Address) (*VaultConfig, error)
}
