// Package loyalty is the loyalty-accrual service: a singleton registry
// configuration and one profile per user carrying lifetime volume, points and
// the tier derived from them.
package loyalty

import (
	"github.com/x-xyz/cloutledger/base/ctx"
	"github.com/x-xyz/cloutledger/domain"
	"github.com/x-xyz/cloutledger/domain/authority"
)

// UnitScale is the number of base units in one unit of volume.
const UnitScale = 1_000_000_000

var (
	ErrUnauthorized              = domain.NewError(domain.KindAuthorization, "Unauthorized", "unauthorized")
	ErrActorMismatch             = domain.NewError(domain.KindAuthorization, "ActorMismatch", "actor does not own the profile")
	ErrProfileAlreadyInitialized = domain.NewError(domain.KindConflict, "ProfileAlreadyInitialized", "profile already initialized")
	ErrProfileNotFound           = domain.NewError(domain.KindNotFound, "ProfileNotFound", "loyalty profile does not exist")
	ErrRegistryNotFound          = domain.NewError(domain.KindNotFound, "RegistryNotFound", "loyalty registry is not initialized")
)

type Tier string

const (
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
	TierDiamond  Tier = "diamond"
)

// TierFor maps a point balance onto its tier.
func TierFor(points domain.Amount) Tier {
	switch {
	case points >= 50_000:
		return TierDiamond
	case points >= 20_000:
		return TierPlatinum
	case points >= 5_000:
		return TierGold
	case points >= 1_000:
		return TierSilver
	default:
		return TierBronze
	}
}

type RegistryConfig struct {
	Address       domain.Address   `json:"address" bson:"_id"`
	Authority     domain.Address   `json:"authority" bson:"authority"`
	PointsPerUnit domain.Amount    `json:"pointsPerUnit" bson:"pointsPerUnit"`
	TotalProfiles domain.Amount    `json:"totalProfiles" bson:"totalProfiles"`
	LastUpdated   domain.Timestamp `json:"lastUpdated" bson:"lastUpdated"`
}

type Profile struct {
	Address      domain.Address   `json:"address" bson:"_id"`
	Owner        domain.Address   `json:"owner" bson:"owner"`
	TotalVolume  domain.Amount    `json:"totalVolume" bson:"totalVolume"`
	Points       domain.Amount    `json:"points" bson:"points"`
	Tier         Tier             `json:"tier" bson:"tier"`
	LastActivity domain.Timestamp `json:"lastActivity" bson:"lastActivity"`
	Delegate     *domain.Address  `json:"delegate,omitempty" bson:"delegate"`
}

// RegistryAddress is the address of the singleton registry configuration.
func RegistryAddress() domain.Address {
	return authority.Derive(authority.LoyaltyProgram, authority.RoleRegistryConfig)
}

// ProfileAddress is the profile derived for owner.
func ProfileAddress(owner domain.Address) domain.Address {
	return authority.Derive(authority.LoyaltyProgram, authority.RoleProfile, authority.Seed(owner))
}

type Repo interface {
	FindRegistry(c ctx.Ctx) (*RegistryConfig, error)
	InsertRegistry(c ctx.Ctx, config *RegistryConfig) error
	UpsertRegistry(c ctx.Ctx, config *RegistryConfig) error

	FindProfile(c ctx.Ctx, address domain.Address) (*Profile, error)
	InsertProfile(c ctx.Ctx, profile *Profile) error
	UpsertProfile(c ctx.Ctx, profile *Profile) error
}

type Usecase interface {
	InitializeRegistry(c ctx.Ctx, registryAuthority domain.Address, pointsPerUnit domain.Amount) (*RegistryConfig, error)
	SetRegistryAuthority(c ctx.Ctx, caller, newAuthority domain.Address) (*RegistryConfig, error)
	GetRegistry(c ctx.Ctx) (*RegistryConfig, error)

	RegisterProfile(c ctx.Ctx, user domain.Address) (*Profile, error)
	GetProfile(c ctx.Ctx, owner domain.Address) (*Profile, error)

	// RecordActivity credits volume and floor(volume*pointsPerUnit/UnitScale)
	// + bonus points to actor's profile and returns the points awarded.
	// caller must be the registry authority.
	RecordActivity(c ctx.Ctx, actor, caller domain.Address, volume, bonus domain.Amount) (domain.Amount, error)
	GrantBonus(c ctx.Ctx, owner, caller domain.Address, points domain.Amount) (*Profile, error)
	// UpgradeTier recomputes the tier; caller is the owner or its delegate.
	UpgradeTier(c ctx.Ctx, owner, caller domain.Address) (*Profile, error)
	SetDelegate(c ctx.Ctx, owner domain.Address, delegate *domain.Address) (*Profile, error)
}
