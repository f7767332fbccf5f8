// Package staking is the reward-accrual staking ledger: pools of one stake
// mint paying a reward mint, and one position per participant and pool.
package staking

import (
	"github.com/x-xyz/cloutledger/base/accrual"
	"github.com/x-xyz/cloutledger/base/ctx"
	"github.com/x-xyz/cloutledger/domain"
	"github.com/x-xyz/cloutledger/domain/authority"
)

var (
	ErrInvalidAmount             = domain.NewError(domain.KindValidation, "InvalidAmount", "amount must be greater than zero")
	ErrInvalidRewardRate         = domain.NewError(domain.KindValidation, "InvalidRewardRate", "reward rate must be non-zero")
	ErrUnauthorized              = domain.NewError(domain.KindAuthorization, "Unauthorized", "caller is not authorized to perform this action")
	ErrInsufficientStakedBalance = domain.NewError(domain.KindState, "InsufficientStakedBalance", "insufficient staked balance")
	ErrNoRewardsAvailable        = domain.NewError(domain.KindState, "NoRewardsAvailable", "no rewards available to harvest")
	ErrInvalidPoolForPosition    = domain.NewError(domain.KindValidation, "InvalidPoolForPosition", "stake position is bound to a different pool")
	ErrMismatchedRewardVault     = domain.NewError(domain.KindValidation, "MismatchedRewardVault", "reward vault does not match pool configuration")
	ErrMismatchedRewardMint      = domain.NewError(domain.KindValidation, "MismatchedRewardMint", "reward mint does not match pool configuration")
	ErrInvalidPoolSigner         = domain.NewError(domain.KindValidation, "InvalidPoolSigner", "pool signer does not match its derivation")
	ErrInvalidPoolVault          = domain.NewError(domain.KindValidation, "InvalidPoolVaultAuthority", "pool vault does not match its derivation")
	ErrMismatchedPoolVaultOwner  = domain.NewError(domain.KindValidation, "MismatchedPoolVaultOwner", "pool vault owner does not match expected signer")
	ErrMismatchedPoolVaultMint   = domain.NewError(domain.KindValidation, "MismatchedPoolVaultMint", "pool vault mint does not match staking mint")
	ErrMismatchedStakeMint       = domain.NewError(domain.KindValidation, "MismatchedStakeMint", "token mint does not match pool staking mint")
	ErrTokenOwnerMismatch        = domain.NewError(domain.KindAuthorization, "TokenOwnerMismatch", "token account is not owned by the staker")
	ErrPoolNotFound              = domain.NewError(domain.KindNotFound, "PoolNotFound", "staking pool does not exist")
	ErrPositionNotFound          = domain.NewError(domain.KindNotFound, "PositionNotFound", "stake position does not exist")
)

type Pool struct {
	Address     domain.Address `json:"address" bson:"_id"`
	Authority   domain.Address `json:"authority" bson:"authority"`
	RewardVault domain.Address `json:"rewardVault" bson:"rewardVault"`
	RewardMint  domain.Address `json:"rewardMint" bson:"rewardMint"`
	StakeMint   domain.Address `json:"stakeMint" bson:"stakeMint"`
	Vault       domain.Address `json:"vault" bson:"vault"`
	Signer      domain.Address `json:"signer" bson:"signer"`

	accrual.Pool `bson:",inline"`

	CreatedAt domain.Timestamp `json:"createdAt" bson:"createdAt"`
}

type Position struct {
	Address domain.Address `json:"address" bson:"_id"`
	Owner   domain.Address `json:"owner" bson:"owner"`
	Pool    domain.Address `json:"pool" bson:"pool"`

	accrual.Position `bson:",inline"`

	LastStakeAt domain.Timestamp `json:"lastStakeAt" bson:"lastStakeAt"`
}

// IsNew reports whether the position has never been bound to an owner.
func (p *Position) IsNew() bool {
	return p.Owner.IsEmpty() && p.Pool.IsEmpty()
}

func PoolAddress(stakeMint domain.Address) domain.Address {
	return authority.Derive(authority.StakingProgram, authority.RolePool, authority.Seed(stakeMint))
}

func VaultAddress(stakeMint domain.Address) domain.Address {
	return authority.Derive(authority.StakingProgram, authority.RolePoolVault, authority.Seed(stakeMint))
}

// SignerFor is the custody capability of the pool for stakeMint.
func SignerFor(stakeMint domain.Address) authority.Signer {
	return authority.NewSigner(authority.StakingProgram, authority.RolePoolSigner, authority.Seed(stakeMint))
}

func PositionAddress(pool, owner domain.Address) domain.Address {
	return authority.Derive(authority.StakingProgram, authority.RolePosition, authority.Seed(pool), authority.Seed(owner))
}

type CreatePoolParams struct {
	Authority   domain.Address `json:"-"`
	RewardVault domain.Address `json:"rewardVault" validate:"required,address"`
	RewardMint  domain.Address `json:"rewardMint" validate:"required,address"`
	StakeMint   domain.Address `json:"stakeMint" validate:"required,address"`
	PoolVault   domain.Address `json:"poolVault" validate:"required,address"`
	PoolSigner  domain.Address `json:"poolSigner" validate:"required,address"`
	RewardRate  domain.Amount  `json:"rewardRate"`
}

type StakeParams struct {
	Pool        domain.Address `json:"-"`
	Staker      domain.Address `json:"-"`
	StakerToken domain.Address `json:"stakerToken" validate:"required,address"`
	PoolVault   domain.Address `json:"poolVault" validate:"required,address"`
	Amount      domain.Amount  `json:"amount"`
}

type UnstakeParams struct {
	Pool        domain.Address `json:"-"`
	Staker      domain.Address `json:"-"`
	Destination domain.Address `json:"destination" validate:"required,address"`
	PoolVault   domain.Address `json:"poolVault" validate:"required,address"`
	PoolSigner  domain.Address `json:"poolSigner" validate:"required,address"`
	Amount      domain.Amount  `json:"amount"`
}

// HarvestParams carries the staker and the pool authority co-signing the
// reward mint.
type HarvestParams struct {
	Pool          domain.Address `json:"-"`
	Staker        domain.Address `json:"-"`
	// PoolAuthority co-signs the harvest.
	PoolAuthority domain.Address `json:"poolAuthority" validate:"required,address"`
	RewardVault   domain.Address `json:"rewardVault" validate:"required,address"`
	RewardMint    domain.Address `json:"rewardMint" validate:"required,address"`
	Recipient     domain.Address `json:"recipient" validate:"required,address"`
	PoolSigner    domain.Address `json:"poolSigner" validate:"required,address"`
}

type Repo interface {
	FindPool(c ctx.Ctx, address domain.Address) (*Pool, error)
	InsertPool(c ctx.Ctx, pool *Pool) error
	UpsertPool(c ctx.Ctx, pool *Pool) error

	FindPosition(c ctx.Ctx, address domain.Address) (*Position, error)
	FindPositions(c ctx.Ctx, pool domain.Address, offset, limit int) ([]*Position, error)
	UpsertPosition(c ctx.Ctx, position *Position) error
}

type Usecase interface {
	CreatePool(c ctx.Ctx, params CreatePoolParams) (*Pool, error)
	// UpdateRewardRate accrues the pool under the old rate before switching.
	UpdateRewardRate(c ctx.Ctx, caller, pool domain.Address, rate domain.Amount) (*Pool, error)
	Stake(c ctx.Ctx, params StakeParams) (*Position, error)
	Unstake(c ctx.Ctx, params UnstakeParams) (*Position, error)
	// Harvest mints all pending rewards of the staker's position into the
	// recipient account and returns the amount minted.
	Harvest(c ctx.Ctx, params HarvestParams) (domain.Amount, error)

	GetPool(c ctx.Ctx, pool domain.Address) (*Pool, error)
	GetPosition(c ctx.Ctx, pool, owner domain.Address) (*Position, error)
	ListPositions(c ctx.Ctx, pool domain.Address, offset, limit int) ([]*Position, error)
	// PreviewPosition returns the pending rewards the position would hold
	// if it were settled now.
	PreviewPosition(c ctx.Ctx, pool, owner domain.Address) (domain.Amount, error)
}
