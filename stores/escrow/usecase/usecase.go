package usecase

import (
	"github.com/x-xyz/cloutledger/base/ctx"
	"github.com/x-xyz/cloutledger/base/log"
	"github.com/x-xyz/cloutledger/base/metrics"
	"github.com/x-xyz/cloutledger/base/safemath"
	"github.com/x-xyz/cloutledger/domain"
	"github.com/x-xyz/cloutledger/domain/authority"
	"github.com/x-xyz/cloutledger/domain/escrow"
	"github.com/x-xyz/cloutledger/domain/loyalty"
	"github.com/x-xyz/cloutledger/domain/rewards"
	"github.com/x-xyz/cloutledger/domain/token"
	"github.com/x-xyz/cloutledger/service/cache"
	"github.com/x-xyz/cloutledger/service/executor"
)

type EscrowUseCaseCfg struct {
	Repo      escrow.Repo
	TokenUC   token.Usecase
	RewardsUC rewards.Usecase
	LoyaltyUC loyalty.Usecase
	Executor  executor.Executor
	Metrics   metrics.Service

	// Receipts are immutable once written; nil disables caching.
	ReceiptCache cache.Service

	// Optional fee destinations. When set, settlements must name them.
	TreasuryDestination    domain.Address
	MarketplaceDestination domain.Address
}

type impl struct {
	repo      escrow.Repo
	tokenUC   token.Usecase
	rewardsUC rewards.Usecase
	loyaltyUC loyalty.Usecase
	ex        executor.Executor
	met       metrics.Service
	receipts  cache.Service

	treasury    domain.Address
	marketplace domain.Address
}

func New(cfg *EscrowUseCaseCfg) escrow.Usecase {
	return &impl{
		repo:        cfg.Repo,
		tokenUC:     cfg.TokenUC,
		rewardsUC:   cfg.RewardsUC,
		loyaltyUC:   cfg.LoyaltyUC,
		ex:          cfg.Executor,
		met:         cfg.Metrics,
		receipts:    cfg.ReceiptCache,
		treasury:    cfg.TreasuryDestination.ToLower(),
		marketplace: cfg.MarketplaceDestination.ToLower(),
	}
}

func (im *impl) CreateListing(c ctx.Ctx, p escrow.CreateListingParams) (*escrow.Listing, error) {
	if p.Price == 0 {
		return nil, escrow.ErrInvalidListingPrice
	}
	fees := safemath.FeeSplit{
		RoyaltyBps:     p.RoyaltyBps,
		TreasuryBps:    p.TreasuryBps,
		MarketplaceBps: p.MarketplaceBps,
	}
	if err := fees.Validate(); err != nil {
		return nil, err
	}
	if p.Seller.IsEmpty() || p.RoyaltyDestination.IsEmpty() {
		return nil, domain.ErrInvalidAddress
	}

	var res *escrow.Listing
	err := im.ex.Run(c, "escrow.createListing", func(c ctx.Ctx) error {
		mint, err := im.tokenUC.GetMint(c, p.NftMint)
		if err != nil {
			return err
		}
		address := escrow.ListingAddress(p.Seller, mint.Address, p.ListingID)
		listing := &escrow.Listing{
			Address:            address,
			EscrowVault:        escrow.VaultAddress(address),
			Seller:             p.Seller.ToLower(),
			NftMint:            mint.Address,
			ListingID:          p.ListingID,
			Price:              p.Price,
			CreatedAt:          executor.Now(c),
			ExpiresAt:          p.ExpiresAt,
			Status:             escrow.StatusActive,
			FeeSplit:           fees,
			RoyaltyDestination: p.RoyaltyDestination.ToLower(),
		}
		if err := im.repo.InsertListing(c, listing); err != nil {
			return err
		}
		if err := im.repo.InsertVault(c, &escrow.Vault{Address: listing.EscrowVault, Listing: address}); err != nil {
			return err
		}
		if _, err := im.tokenUC.OpenAccount(c, listing.EscrowVault, authority.EscrowProgram, domain.NativeMint); err != nil {
			return err
		}
		res = listing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (im *impl) GetListing(c ctx.Ctx, listing domain.Address) (*escrow.Listing, error) {
	res, err := im.repo.FindListing(c, listing)
	if err == domain.ErrNotFound {
		return nil, escrow.ErrListingNotFound
	}
	return res, err
}

func (im *impl) GetVault(c ctx.Ctx, listing domain.Address) (*escrow.Vault, error) {
	res, err := im.repo.FindVault(c, escrow.VaultAddress(listing))
	if err == domain.ErrNotFound {
		return nil, escrow.ErrVaultNotFound
	}
	return res, err
}

func (im *impl) GetReceipt(c ctx.Ctx, listing domain.Address) (*escrow.Receipt, error) {
	if im.receipts == nil {
		return im.findReceipt(c, listing)
	}
	res := &escrow.Receipt{}
	err := im.receipts.GetByFunc(c, listing.ToLowerStr(), res, func() (interface{}, error) {
		return im.findReceipt(c, listing)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (im *impl) findReceipt(c ctx.Ctx, listing domain.Address) (*escrow.Receipt, error) {
	l, err := im.GetListing(c, listing)
	if err != nil {
		return nil, err
	}
	if l.Buyer == nil {
		return nil, escrow.ErrReceiptNotFound
	}
	res, err := im.repo.FindReceipt(c, escrow.ReceiptAddress(l.Address, *l.Buyer))
	if err == domain.ErrNotFound {
		return nil, escrow.ErrReceiptNotFound
	}
	return res, err
}

func (im *impl) ListListings(c ctx.Ctx, filter escrow.ListingFilter) ([]*escrow.Listing, error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, domain.ErrBadParamInput
	}
	return im.repo.FindListings(c, filter)
}

// load fetches a listing and its vault.
func (im *impl) load(c ctx.Ctx, address domain.Address) (*escrow.Listing, *escrow.Vault, error) {
	listing, err := im.GetListing(c, address)
	if err != nil {
		return nil, nil, err
	}
	vault, err := im.GetVault(c, listing.Address)
	if err != nil {
		return nil, nil, err
	}
	return listing, vault, nil
}

func (im *impl) CancelListing(c ctx.Ctx, seller, address domain.Address) (*escrow.Listing, error) {
	var res *escrow.Listing
	err := im.ex.Run(c, "escrow.cancelListing", func(c ctx.Ctx) error {
		listing, vault, err := im.load(c, address)
		if err != nil {
			return err
		}
		if !listing.Seller.Equals(seller) {
			return escrow.ErrSellerMismatch
		}
		if listing.Status != escrow.StatusActive {
			return escrow.ErrListingNotActive
		}
		if vault.TotalDeposited != 0 {
			return escrow.ErrOutstandingEscrowBalance
		}
		now := executor.Now(c)
		listing.Status = escrow.StatusCancelled
		listing.SettledAt = &now
		res = listing
		return im.repo.UpsertListing(c, listing)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (im *impl) ExecuteSale(c ctx.Ctx, p escrow.ExecuteSaleParams) (*escrow.Listing, error) {
	if p.Buyer.IsEmpty() {
		return nil, domain.ErrInvalidAddress
	}
	var res *escrow.Listing
	err := im.ex.Run(c, "escrow.executeSale", func(c ctx.Ctx) error {
		listing, vault, err := im.load(c, p.Listing)
		if err != nil {
			return err
		}
		if listing.Status != escrow.StatusActive {
			return escrow.ErrListingNotActive
		}
		now := executor.Now(c)
		if listing.IsExpired(now) {
			return escrow.ErrListingExpired
		}
		if vault.TotalDeposited != 0 {
			return escrow.ErrEscrowAlreadyFunded
		}
		if !listing.Seller.Equals(p.Seller) {
			return escrow.ErrSellerMismatch
		}

		if err := im.tokenUC.TransferNative(c, p.Buyer, vault.Address, listing.Price); err != nil {
			return err
		}
		if vault.TotalDeposited, err = safemath.Add(vault.TotalDeposited, listing.Price); err != nil {
			return err
		}
		if err := im.repo.UpsertVault(c, vault); err != nil {
			return err
		}

		buyer := p.Buyer.ToLower()
		listing.Status = escrow.StatusPendingSettlement
		listing.Buyer = &buyer
		listing.SoldAt = &now
		res = listing
		return im.repo.UpsertListing(c, listing)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (im *impl) SettleSale(c ctx.Ctx, p escrow.SettleSaleParams) (*escrow.Receipt, error) {
	var res *escrow.Receipt
	err := im.ex.Run(c, "escrow.settleSale", func(c ctx.Ctx) error {
		listing, vault, err := im.load(c, p.Listing)
		if err != nil {
			return err
		}
		if !listing.Seller.Equals(p.Seller) {
			return escrow.ErrSellerMismatch
		}
		if listing.Status != escrow.StatusPendingSettlement {
			return escrow.ErrListingNotPending
		}
		if listing.Buyer == nil {
			return escrow.ErrMissingBuyer
		}
		buyer := *listing.Buyer
		if !buyer.Equals(p.Buyer) {
			return escrow.ErrBuyerMismatch
		}
		if !listing.RoyaltyDestination.Equals(p.RoyaltyDestination) {
			return escrow.ErrRoyaltyDestinationMismatch
		}
		if !im.treasury.IsEmpty() && !im.treasury.Equals(p.TreasuryDestination) {
			return escrow.ErrTreasuryDestinationMismatch
		}
		if !im.marketplace.IsEmpty() && !im.marketplace.Equals(p.MarketplaceDestination) {
			return escrow.ErrMarketplaceDestinationMismatch
		}
		if vault.TotalDeposited < listing.Price {
			return escrow.ErrInsufficientEscrowBalance
		}

		split, err := listing.FeeSplit.Split(listing.Price)
		if err != nil {
			return err
		}
		payouts := []struct {
			to     domain.Address
			amount domain.Amount
		}{
			{listing.Seller, split.SellerPayout},
			{listing.RoyaltyDestination, split.Royalty},
			{p.TreasuryDestination, split.Treasury},
			{p.MarketplaceDestination, split.Marketplace},
		}
		for _, payout := range payouts {
			// zero amounts are skipped by Disburse
			if err := im.tokenUC.Disburse(c, authority.EscrowProgram, vault.Address, payout.to, payout.amount); err != nil {
				return err
			}
		}
		if vault.TotalDeposited, err = safemath.Sub(vault.TotalDeposited, listing.Price); err != nil {
			return err
		}
		if err := im.repo.UpsertVault(c, vault); err != nil {
			return err
		}

		now := executor.Now(c)
		listing.Status = escrow.StatusSettled
		listing.SettledAt = &now
		if err := im.repo.UpsertListing(c, listing); err != nil {
			return err
		}

		if p.RewardAmount > 0 {
			if err := im.mintBuyerRewards(c, buyer, p); err != nil {
				return err
			}
		}

		registry, err := im.loyaltyUC.GetRegistry(c)
		if err != nil {
			return err
		}
		if !registry.Authority.Equals(p.LoyaltyAuthority) {
			return escrow.ErrUnauthorizedLoyaltyAuthority
		}
		awarded, err := im.loyaltyUC.RecordActivity(c, buyer, p.LoyaltyAuthority, listing.Price, p.LoyaltyBonusPoints)
		if err != nil {
			return err
		}

		res = &escrow.Receipt{
			Address:              escrow.ReceiptAddress(listing.Address, buyer),
			Listing:              listing.Address,
			Buyer:                buyer,
			Seller:               listing.Seller,
			AmountPaid:           listing.Price,
			SellerProceeds:       split.SellerPayout,
			RoyaltyPaid:          split.Royalty,
			TreasuryPaid:         split.Treasury,
			MarketplaceFeePaid:   split.Marketplace,
			RewardsMinted:        p.RewardAmount,
			LoyaltyBonusPoints:   p.LoyaltyBonusPoints,
			LoyaltyPointsAwarded: awarded,
			Timestamp:            now,
		}
		return im.repo.InsertReceipt(c, res)
	})
	if err != nil {
		return nil, err
	}
	im.met.BumpSum("escrow.settled", float64(res.AmountPaid))
	c.WithFields(log.Fields{"listing": res.Listing, "buyer": res.Buyer, "price": res.AmountPaid}).Info("sale settled")
	return res, nil
}

func (im *impl) mintBuyerRewards(c ctx.Ctx, buyer domain.Address, p escrow.SettleSaleParams) error {
	vault, err := im.rewardsUC.GetVault(c, p.RewardVault)
	if err != nil {
		return err
	}
	if !vault.Authority.Equals(p.RewardAuthority) {
		return escrow.ErrUnauthorizedRewardAuthority
	}
	if !vault.RewardMint.Equals(p.RewardMint) {
		return escrow.ErrMismatchedRewardMint
	}
	acc, err := im.tokenUC.GetAccount(c, p.BuyerRewardAccount)
	if err != nil {
		return err
	}
	if !acc.Owner.Equals(buyer) || !acc.Mint.Equals(vault.RewardMint) {
		return escrow.ErrRewardAccountMismatch
	}
	return im.rewardsUC.MintRewards(c, vault.Address, p.RewardAuthority, vault.RewardMint, acc.Address, p.RewardAmount)
}
