package usecase

import (
	"github.com/x-xyz/cloutledger/base/accrual"
	"github.com/x-xyz/cloutledger/base/ctx"
	"github.com/x-xyz/cloutledger/base/log"
	"github.com/x-xyz/cloutledger/base/metrics"
	"github.com/x-xyz/cloutledger/base/safemath"
	"github.com/x-xyz/cloutledger/domain"
	"github.com/x-xyz/cloutledger/domain/rewards"
	"github.com/x-xyz/cloutledger/domain/staking"
	"github.com/x-xyz/cloutledger/domain/token"
	"github.com/x-xyz/cloutledger/service/executor"
)

type StakingUseCaseCfg struct {
	Repo      staking.Repo
	TokenUC   token.Usecase
	RewardsUC rewards.Usecase
	Executor  executor.Executor
	Metrics   metrics.Service
}

type impl struct {
	repo      staking.Repo
	tokenUC   token.Usecase
	rewardsUC rewards.Usecase
	ex        executor.Executor
	met       metrics.Service
}

func New(cfg *StakingUseCaseCfg) staking.Usecase {
	return &impl{
		repo:      cfg.Repo,
		tokenUC:   cfg.TokenUC,
		rewardsUC: cfg.RewardsUC,
		ex:        cfg.Executor,
		met:       cfg.Metrics,
	}
}

func (im *impl) CreatePool(c ctx.Ctx, p staking.CreatePoolParams) (*staking.Pool, error) {
	if p.RewardRate == 0 {
		return nil, staking.ErrInvalidRewardRate
	}
	var res *staking.Pool
	err := im.ex.Run(c, "staking.createPool", func(c ctx.Ctx) error {
		vault, err := im.rewardsUC.GetVault(c, p.RewardVault)
		if err != nil {
			return err
		}
		if !vault.RewardMint.Equals(p.RewardMint) {
			return staking.ErrMismatchedRewardMint
		}
		if !vault.Authority.Equals(p.Authority) {
			return staking.ErrUnauthorized
		}

		mint, err := im.tokenUC.GetMint(c, p.StakeMint)
		if err != nil {
			return err
		}
		if !staking.VaultAddress(mint.Address).Equals(p.PoolVault) {
			return staking.ErrInvalidPoolVault
		}
		signer := staking.SignerFor(mint.Address)
		if err := signer.Verify(p.PoolSigner, staking.ErrInvalidPoolSigner); err != nil {
			return err
		}

		now := executor.Now(c)
		res = &staking.Pool{
			Address:     staking.PoolAddress(mint.Address),
			Authority:   p.Authority.ToLower(),
			RewardVault: vault.Address,
			RewardMint:  vault.RewardMint,
			StakeMint:   mint.Address,
			Vault:       staking.VaultAddress(mint.Address),
			Signer:      signer.Address(),
			Pool: accrual.Pool{
				RewardRate: p.RewardRate,
				LastUpdate: now,
			},
			CreatedAt: now,
		}
		if err := im.repo.InsertPool(c, res); err != nil {
			return err
		}
		_, err = im.tokenUC.OpenAccount(c, res.Vault, res.Signer, res.StakeMint)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (im *impl) GetPool(c ctx.Ctx, pool domain.Address) (*staking.Pool, error) {
	res, err := im.repo.FindPool(c, pool)
	if err == domain.ErrNotFound {
		return nil, staking.ErrPoolNotFound
	}
	return res, err
}

func (im *impl) GetPosition(c ctx.Ctx, pool, owner domain.Address) (*staking.Position, error) {
	res, err := im.repo.FindPosition(c, staking.PositionAddress(pool, owner))
	if err == domain.ErrNotFound {
		return nil, staking.ErrPositionNotFound
	}
	return res, err
}

func (im *impl) ListPositions(c ctx.Ctx, pool domain.Address, offset, limit int) ([]*staking.Position, error) {
	if _, err := im.GetPool(c, pool); err != nil {
		return nil, err
	}
	return im.repo.FindPositions(c, pool, offset, limit)
}

func (im *impl) PreviewPosition(c ctx.Ctx, pool, owner domain.Address) (domain.Amount, error) {
	var pending domain.Amount
	err := im.ex.Run(c, "staking.previewPosition", func(c ctx.Ctx) error {
		pl, err := im.GetPool(c, pool)
		if err != nil {
			return err
		}
		pos, err := im.GetPosition(c, pool, owner)
		if err != nil {
			return err
		}
		pending, err = accrual.Preview(pl.Pool, pos.Position, executor.Now(c))
		return err
	})
	if err != nil {
		return 0, err
	}
	return pending, nil
}

func (im *impl) UpdateRewardRate(c ctx.Ctx, caller, pool domain.Address, rate domain.Amount) (*staking.Pool, error) {
	var res *staking.Pool
	err := im.ex.Run(c, "staking.updateRewardRate", func(c ctx.Ctx) error {
		pl, err := im.GetPool(c, pool)
		if err != nil {
			return err
		}
		if !pl.Authority.Equals(caller) {
			return staking.ErrUnauthorized
		}
		if err := accrual.AccruePool(&pl.Pool, executor.Now(c)); err != nil {
			return err
		}
		pl.RewardRate = rate
		res = pl
		return im.repo.UpsertPool(c, pl)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// checkVault verifies the supplied custody account is the pool's derived
// vault, held by the pool signer in the stake mint.
func (im *impl) checkVault(c ctx.Ctx, pl *staking.Pool, supplied domain.Address) error {
	if !staking.VaultAddress(pl.StakeMint).Equals(supplied) {
		return staking.ErrInvalidPoolVault
	}
	vault, err := im.tokenUC.GetAccount(c, supplied)
	if err != nil {
		return err
	}
	if !staking.SignerFor(pl.StakeMint).Authorizes(vault.Owner) {
		return staking.ErrMismatchedPoolVaultOwner
	}
	if !vault.Mint.Equals(pl.StakeMint) {
		return staking.ErrMismatchedPoolVaultMint
	}
	return nil
}

// checkStakerToken verifies account is the staker's account of mint.
func (im *impl) checkStakerToken(c ctx.Ctx, staker, account, mint domain.Address, onMismatch error) error {
	acc, err := im.tokenUC.GetAccount(c, account)
	if err != nil {
		return err
	}
	if !acc.Owner.Equals(staker) {
		return staking.ErrTokenOwnerMismatch
	}
	if !acc.Mint.Equals(mint) {
		return onMismatch
	}
	return nil
}

// touch runs both accrual steps for the staker's position, loading a fresh
// position when the staker has none yet.
func (im *impl) touch(c ctx.Ctx, pl *staking.Pool, staker domain.Address) (*staking.Position, error) {
	if err := accrual.AccruePool(&pl.Pool, executor.Now(c)); err != nil {
		return nil, err
	}
	pos, err := im.repo.FindPosition(c, staking.PositionAddress(pl.Address, staker))
	if err == domain.ErrNotFound {
		pos = &staking.Position{Address: staking.PositionAddress(pl.Address, staker)}
	} else if err != nil {
		return nil, err
	}
	if err := accrual.AccruePosition(&pl.Pool, &pos.Position); err != nil {
		return nil, err
	}
	return pos, nil
}

func (im *impl) save(c ctx.Ctx, pl *staking.Pool, pos *staking.Position) error {
	if err := im.repo.UpsertPool(c, pl); err != nil {
		return err
	}
	return im.repo.UpsertPosition(c, pos)
}

func (im *impl) Stake(c ctx.Ctx, p staking.StakeParams) (*staking.Position, error) {
	if p.Amount == 0 {
		return nil, staking.ErrInvalidAmount
	}
	var res *staking.Position
	err := im.ex.Run(c, "staking.stake", func(c ctx.Ctx) error {
		pl, err := im.GetPool(c, p.Pool)
		if err != nil {
			return err
		}
		if err := im.checkVault(c, pl, p.PoolVault); err != nil {
			return err
		}
		if err := im.checkStakerToken(c, p.Staker, p.StakerToken, pl.StakeMint, staking.ErrMismatchedStakeMint); err != nil {
			return err
		}

		pos, err := im.touch(c, pl, p.Staker)
		if err != nil {
			return err
		}
		if pos.IsNew() {
			pos.Owner = p.Staker.ToLower()
			pos.Pool = pl.Address
		} else if !pos.Owner.Equals(p.Staker) {
			return staking.ErrUnauthorized
		} else if !pos.Pool.Equals(pl.Address) {
			return staking.ErrInvalidPoolForPosition
		}

		if pl.TotalStaked, err = safemath.Add(pl.TotalStaked, p.Amount); err != nil {
			return err
		}
		if pos.Amount, err = safemath.Add(pos.Amount, p.Amount); err != nil {
			return err
		}
		pos.Checkpoint = pl.RewardPerShare
		pos.LastStakeAt = executor.Now(c)

		if err := im.save(c, pl, pos); err != nil {
			return err
		}
		res = pos
		return im.tokenUC.Transfer(c, p.Staker, p.StakerToken, pl.Vault, p.Amount)
	})
	if err != nil {
		return nil, err
	}
	im.met.BumpSum("staking.staked", float64(p.Amount), "pool", p.Pool.ToLowerStr())
	return res, nil
}

func (im *impl) Unstake(c ctx.Ctx, p staking.UnstakeParams) (*staking.Position, error) {
	if p.Amount == 0 {
		return nil, staking.ErrInvalidAmount
	}
	var res *staking.Position
	err := im.ex.Run(c, "staking.unstake", func(c ctx.Ctx) error {
		pl, err := im.GetPool(c, p.Pool)
		if err != nil {
			return err
		}
		pos, err := im.GetPosition(c, pl.Address, p.Staker)
		if err != nil {
			return err
		}
		if !pos.Owner.Equals(p.Staker) {
			return staking.ErrUnauthorized
		}
		if pos.Amount < p.Amount {
			return staking.ErrInsufficientStakedBalance
		}
		if err := im.checkVault(c, pl, p.PoolVault); err != nil {
			return err
		}
		signer := staking.SignerFor(pl.StakeMint)
		if err := signer.Verify(p.PoolSigner, staking.ErrInvalidPoolSigner); err != nil {
			return err
		}
		if err := im.checkStakerToken(c, p.Staker, p.Destination, pl.StakeMint, staking.ErrMismatchedStakeMint); err != nil {
			return err
		}

		if pos, err = im.touch(c, pl, p.Staker); err != nil {
			return err
		}
		if pl.TotalStaked, err = safemath.Sub(pl.TotalStaked, p.Amount); err != nil {
			return err
		}
		if pos.Amount, err = safemath.Sub(pos.Amount, p.Amount); err != nil {
			return err
		}
		pos.Checkpoint = pl.RewardPerShare
		pos.LastStakeAt = executor.Now(c)

		if err := im.save(c, pl, pos); err != nil {
			return err
		}
		res = pos
		return im.tokenUC.Transfer(c, signer.Address(), pl.Vault, p.Destination, p.Amount)
	})
	if err != nil {
		return nil, err
	}
	im.met.BumpSum("staking.unstaked", float64(p.Amount), "pool", p.Pool.ToLowerStr())
	return res, nil
}

func (im *impl) Harvest(c ctx.Ctx, p staking.HarvestParams) (domain.Amount, error) {
	var amount domain.Amount
	err := im.ex.Run(c, "staking.harvest", func(c ctx.Ctx) error {
		pl, err := im.GetPool(c, p.Pool)
		if err != nil {
			return err
		}
		pos, err := im.GetPosition(c, pl.Address, p.Staker)
		if err != nil {
			return err
		}
		if !pos.Owner.Equals(p.Staker) {
			return staking.ErrUnauthorized
		}

		if pos, err = im.touch(c, pl, p.Staker); err != nil {
			return err
		}
		amount = pos.PendingRewards
		if amount == 0 {
			return staking.ErrNoRewardsAvailable
		}
		pos.PendingRewards = 0
		pos.Checkpoint = pl.RewardPerShare

		if !pl.Authority.Equals(p.PoolAuthority) {
			return staking.ErrUnauthorized
		}
		if !pl.RewardVault.Equals(p.RewardVault) {
			return staking.ErrMismatchedRewardVault
		}
		if !pl.RewardMint.Equals(p.RewardMint) {
			return staking.ErrMismatchedRewardMint
		}
		if err := staking.SignerFor(pl.StakeMint).Verify(p.PoolSigner, staking.ErrInvalidPoolSigner); err != nil {
			return err
		}
		if err := im.checkStakerToken(c, p.Staker, p.Recipient, pl.RewardMint, staking.ErrMismatchedRewardMint); err != nil {
			return err
		}

		if err := im.save(c, pl, pos); err != nil {
			return err
		}
		return im.rewardsUC.MintRewards(c, pl.RewardVault, p.PoolAuthority, pl.RewardMint, p.Recipient, amount)
	})
	if err != nil {
		return 0, err
	}
	im.met.BumpSum("staking.harvested", float64(amount), "pool", p.Pool.ToLowerStr())
	c.WithFields(log.Fields{"pool": p.Pool, "staker": p.Staker, "amount": amount}).Debug("rewards harvested")
	return amount, nil
}
