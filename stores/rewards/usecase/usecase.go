package usecase

import (
	"github.com/x-xyz/cloutledger/base/ctx"
	"github.com/x-xyz/cloutledger/base/log"
	"github.com/x-xyz/cloutledger/base/metrics"
	"github.com/x-xyz/cloutledger/domain"
	"github.com/x-xyz/cloutledger/domain/rewards"
	"github.com/x-xyz/cloutledger/domain/token"
	"github.com/x-xyz/cloutledger/service/executor"
)

type RewardsUseCaseCfg struct {
	Repo     rewards.Repo
	TokenUC  token.Usecase
	Executor executor.Executor
	Metrics  metrics.Service
}

type impl struct {
	repo    rewards.Repo
	tokenUC token.Usecase
	ex      executor.Executor
	met     metrics.Service
}

func New(cfg *RewardsUseCaseCfg) rewards.Usecase {
	return &impl{
		repo:    cfg.Repo,
		tokenUC: cfg.TokenUC,
		ex:      cfg.Executor,
		met:     cfg.Metrics,
	}
}

func (im *impl) InitializeVault(c ctx.Ctx, caller, rewardMint domain.Address) (*rewards.VaultConfig, error) {
	if caller.IsEmpty() || rewardMint.IsEmpty() {
		return nil, domain.ErrInvalidAddress
	}
	var res *rewards.VaultConfig
	err := im.ex.Run(c, "rewards.initializeVault", func(c ctx.Ctx) error {
		mint, err := im.tokenUC.GetMint(c, rewardMint)
		if err != nil {
			return err
		}
		signer := rewards.SignerFor(mint.Address)
		if !signer.Authorizes(mint.Authority) {
			return rewards.ErrMintAuthority
		}
		res = &rewards.VaultConfig{
			Address:    rewards.ConfigAddress(mint.Address),
			Authority:  caller.ToLower(),
			RewardMint: mint.Address,
			Signer:     signer.Address(),
			CreatedAt:  executor.Now(c),
		}
		return im.repo.Insert(c, res)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (im *impl) GetVault(c ctx.Ctx, vault domain.Address) (*rewards.VaultConfig, error) {
	config, err := im.repo.FindOne(c, vault)
	if err == domain.ErrNotFound {
		return nil, rewards.ErrVaultNotFound
	}
	return config, err
}

func (im *impl) SetEmissionRate(c ctx.Ctx, caller, vault domain.Address, rate domain.Amount) (*rewards.VaultConfig, error) {
	var res *rewards.VaultConfig
	err := im.ex.Run(c, "rewards.setEmissionRate", func(c ctx.Ctx) error {
		config, err := im.GetVault(c, vault)
		if err != nil {
			return err
		}
		if !config.Authority.Equals(caller) {
			return rewards.ErrUnauthorized
		}
		config.EmissionRate = rate
		res = config
		return im.repo.Upsert(c, config)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (im *impl) MintRewards(c ctx.Ctx, vault, caller, rewardMint, recipient domain.Address, amount domain.Amount) error {
	return im.ex.Run(c, "rewards.mintRewards", func(c ctx.Ctx) error {
		config, err := im.GetVault(c, vault)
		if err != nil {
			return err
		}
		if !config.Authority.Equals(caller) {
			return rewards.ErrUnauthorized
		}
		if !config.RewardMint.Equals(rewardMint) {
			return rewards.ErrMismatchedRewardMint
		}
		signer := rewards.SignerFor(config.RewardMint)
		if err := im.tokenUC.MintTo(c, signer.Address(), config.RewardMint, recipient, amount); err != nil {
			return err
		}
		executor.AfterCommit(c, func() {
			im.met.BumpSum("rewards.minted", float64(amount), "mint", rewardMint.ToLowerStr())
			c.WithFields(log.Fields{"vault": vault, "recipient": recipient, "amount": amount}).Debug("rewards minted")
		})
		return nil
	})
}
