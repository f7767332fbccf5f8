package usecase

import (
	"github.com/x-xyz/cloutledger/base/ctx"
	"github.com/x-xyz/cloutledger/base/log"
	"github.com/x-xyz/cloutledger/base/metrics"
	"github.com/x-xyz/cloutledger/base/safemath"
	"github.com/x-xyz/cloutledger/domain"
	"github.com/x-xyz/cloutledger/domain/loyalty"
	"github.com/x-xyz/cloutledger/service/executor"
)

type impl struct {
	repo loyalty.Repo
	ex   executor.Executor
	met  metrics.Service
}

func New(repo loyalty.Repo, ex executor.Executor, met metrics.Service) loyalty.Usecase {
	return &impl{
		repo: repo,
		ex:   ex,
		met:  met,
	}
}

func (im *impl) InitializeRegistry(c ctx.Ctx, registryAuthority domain.Address, pointsPerUnit domain.Amount) (*loyalty.RegistryConfig, error) {
	if registryAuthority.IsEmpty() {
		return nil, domain.ErrInvalidAddress
	}
	config := &loyalty.RegistryConfig{
		Address:       loyalty.RegistryAddress(),
		Authority:     registryAuthority.ToLower(),
		PointsPerUnit: pointsPerUnit,
	}
	err := im.ex.Run(c, "loyalty.initializeRegistry", func(c ctx.Ctx) error {
		config.LastUpdated = executor.Now(c)
		return im.repo.InsertRegistry(c, config)
	})
	if err != nil {
		return nil, err
	}
	return config, nil
}

func (im *impl) GetRegistry(c ctx.Ctx) (*loyalty.RegistryConfig, error) {
	config, err := im.repo.FindRegistry(c)
	if err == domain.ErrNotFound {
		return nil, loyalty.ErrRegistryNotFound
	}
	return config, err
}

func (im *impl) SetRegistryAuthority(c ctx.Ctx, caller, newAuthority domain.Address) (*loyalty.RegistryConfig, error) {
	if newAuthority.IsEmpty() {
		return nil, domain.ErrInvalidAddress
	}
	var res *loyalty.RegistryConfig
	err := im.ex.Run(c, "loyalty.setRegistryAuthority", func(c ctx.Ctx) error {
		config, err := im.GetRegistry(c)
		if err != nil {
			return err
		}
		if !config.Authority.Equals(caller) {
			return loyalty.ErrUnauthorized
		}
		config.Authority = newAuthority.ToLower()
		config.LastUpdated = executor.Now(c)
		res = config
		return im.repo.UpsertRegistry(c, config)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (im *impl) RegisterProfile(c ctx.Ctx, user domain.Address) (*loyalty.Profile, error) {
	if user.IsEmpty() {
		return nil, domain.ErrInvalidAddress
	}
	var res *loyalty.Profile
	err := im.ex.Run(c, "loyalty.registerProfile", func(c ctx.Ctx) error {
		config, err := im.GetRegistry(c)
		if err != nil {
			return err
		}
		now := executor.Now(c)
		profile := &loyalty.Profile{
			Address:      loyalty.ProfileAddress(user),
			Owner:        user.ToLower(),
			Tier:         loyalty.TierBronze,
			LastActivity: now,
		}
		if err := im.repo.InsertProfile(c, profile); err == domain.ErrConflict {
			return loyalty.ErrProfileAlreadyInitialized
		} else if err != nil {
			return err
		}

		if config.TotalProfiles, err = safemath.Add(config.TotalProfiles, 1); err != nil {
			return err
		}
		config.LastUpdated = now
		res = profile
		return im.repo.UpsertRegistry(c, config)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (im *impl) GetProfile(c ctx.Ctx, owner domain.Address) (*loyalty.Profile, error) {
	profile, err := im.repo.FindProfile(c, loyalty.ProfileAddress(owner))
	if err == domain.ErrNotFound {
		return nil, loyalty.ErrProfileNotFound
	}
	return profile, err
}

// authorized loads the registry and checks caller against its authority.
func (im *impl) authorized(c ctx.Ctx, caller domain.Address) (*loyalty.RegistryConfig, error) {
	config, err := im.GetRegistry(c)
	if err != nil {
		return nil, err
	}
	if !config.Authority.Equals(caller) {
		return nil, loyalty.ErrUnauthorized
	}
	return config, nil
}

func (im *impl) RecordActivity(c ctx.Ctx, actor, caller domain.Address, volume, bonus domain.Amount) (domain.Amount, error) {
	var awarded domain.Amount
	err := im.ex.Run(c, "loyalty.recordActivity", func(c ctx.Ctx) error {
		profile, err := im.GetProfile(c, actor)
		if err != nil {
			return err
		}
		if !profile.Owner.Equals(actor) {
			return loyalty.ErrActorMismatch
		}
		config, err := im.authorized(c, caller)
		if err != nil {
			return err
		}

		computed, err := safemath.Mul(volume, config.PointsPerUnit)
		if err != nil {
			return err
		}
		if computed, err = safemath.Div(computed, loyalty.UnitScale); err != nil {
			return err
		}
		if awarded, err = safemath.Add(computed, bonus); err != nil {
			return err
		}
		if profile.TotalVolume, err = safemath.Add(profile.TotalVolume, volume); err != nil {
			return err
		}
		if profile.Points, err = safemath.Add(profile.Points, awarded); err != nil {
			return err
		}
		profile.Tier = loyalty.TierFor(profile.Points)
		profile.LastActivity = executor.Now(c)
		if err := im.repo.UpsertProfile(c, profile); err != nil {
			return err
		}
		points := awarded
		executor.AfterCommit(c, func() {
			im.met.BumpSum("loyalty.points", float64(points))
			c.WithFields(log.Fields{"actor": actor, "volume": volume, "awarded": points}).Debug("loyalty activity recorded")
		})
		return nil
	})
	if err != nil {
		return 0, err
	}
	return awarded, nil
}

func (im *impl) GrantBonus(c ctx.Ctx, owner, caller domain.Address, points domain.Amount) (*loyalty.Profile, error) {
	var res *loyalty.Profile
	err := im.ex.Run(c, "loyalty.grantBonus", func(c ctx.Ctx) error {
		profile, err := im.GetProfile(c, owner)
		if err != nil {
			return err
		}
		if _, err := im.authorized(c, caller); err != nil {
			return err
		}
		if profile.Points, err = safemath.Add(profile.Points, points); err != nil {
			return err
		}
		profile.Tier = loyalty.TierFor(profile.Points)
		profile.LastActivity = executor.Now(c)
		res = profile
		return im.repo.UpsertProfile(c, profile)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (im *impl) UpgradeTier(c ctx.Ctx, owner, caller domain.Address) (*loyalty.Profile, error) {
	var res *loyalty.Profile
	err := im.ex.Run(c, "loyalty.upgradeTier", func(c ctx.Ctx) error {
		profile, err := im.GetProfile(c, owner)
		if err != nil {
			return err
		}
		delegated := profile.Delegate != nil && profile.Delegate.Equals(caller)
		if !profile.Owner.Equals(caller) && !delegated {
			return loyalty.ErrUnauthorized
		}
		profile.Tier = loyalty.TierFor(profile.Points)
		profile.LastActivity = executor.Now(c)
		res = profile
		return im.repo.UpsertProfile(c, profile)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (im *impl) SetDelegate(c ctx.Ctx, owner domain.Address, delegate *domain.Address) (*loyalty.Profile, error) {
	var res *loyalty.Profile
	err := im.ex.Run(c, "loyalty.setDelegate", func(c ctx.Ctx) error {
		profile, err := im.GetProfile(c, owner)
		if err != nil {
			return err
		}
		if !profile.Owner.Equals(owner) {
			return loyalty.ErrUnauthorized
		}
		if delegate != nil {
			d := delegate.ToLower()
			delegate = &d
		}
		profile.Delegate = delegate
		profile.LastActivity = executor.Now(c)
		res = profile
		return im.repo.UpsertProfile(c, profile)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
