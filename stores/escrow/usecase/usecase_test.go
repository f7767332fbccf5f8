package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/x-xyz/cloutledger/base/ctx"
	"github.com/x-xyz/cloutledger/base/metrics"
	"github.com/x-xyz/cloutledger/base/safemath"
	"github.com/x-xyz/cloutledger/domain"
	"github.com/x-xyz/cloutledger/domain/authority"
	"github.com/x-xyz/cloutledger/domain/escrow"
	"github.com/x-xyz/cloutledger/domain/loyalty"
	"github.com/x-xyz/cloutledger/domain/rewards"
	"github.com/x-xyz/cloutledger/domain/keys"
	"github.com/x-xyz/cloutledger/domain/token"
	"github.com/x-xyz/cloutledger/service/cache"
	"github.com/x-xyz/cloutledger/service/cache/provider/primitive"
	"github.com/x-xyz/cloutledger/service/executor"
	"github.com/x-xyz/cloutledger/service/query"
	"github.com/x-xyz/cloutledger/stores/escrow/repository"
	loyaltyRepo "github.com/x-xyz/cloutledger/stores/loyalty/repository"
	loyaltyUC "github.com/x-xyz/cloutledger/stores/loyalty/usecase"
	rewardsRepo "github.com/x-xyz/cloutledger/stores/rewards/repository"
	rewardsUC "github.com/x-xyz/cloutledger/stores/rewards/usecase"
	tokenRepo "github.com/x-xyz/cloutledger/stores/token/repository"
	tokenUC "github.com/x-xyz/cloutledger/stores/token/usecase"
)

const (
	admin       = domain.Address("0x00000000000000000000000000000000000000ad")
	registrar   = domain.Address("0x00000000000000000000000000000000000000ae")
	stranger    = domain.Address("0x0000000000000000000000000000000000000bad")
	seller      = domain.Address("0x00000000000000000000000000000000000000a1")
	buyer       = domain.Address("0x00000000000000000000000000000000000000b1")
	lateBuyer   = domain.Address("0x00000000000000000000000000000000000000b2")
	creator     = domain.Address("0x00000000000000000000000000000000000000c1")
	treasury    = domain.Address("0x00000000000000000000000000000000000000d1")
	marketplace = domain.Address("0x00000000000000000000000000000000000000d2")
	nftMint     = domain.Address("0x00000000000000000000000000000000000000e1")
	rewardMnt   = domain.Address("0x00000000000000000000000000000000000000e2")
	buyerReward = domain.Address("0x00000000000000000000000000000000000000f1")
)

type escrowSuite struct {
	suite.Suite
	ctx     ctx.Ctx
	now     int64
	repo    escrow.Repo
	tokens  token.Usecase
	loyalty loyalty.Usecase
	cfg     EscrowUseCaseCfg
	im      escrow.Usecase
	listing *escrow.Listing
}

func TestEscrowSuite(t *testing.T) {
	suite.Run(t, new(escrowSuite))
}

func (s *escrowSuite) SetupTest() {
	s.ctx = ctx.Background()
	s.now = 50
	q := query.NewMemory()
	met := metrics.New("test")
	ex := executor.New(q, met, executor.WithClock(func() time.Time { return time.Unix(s.now, 0) }))
	s.repo = repository.New(q)
	s.tokens = tokenUC.New(tokenRepo.New(q), ex)
	s.loyalty = loyaltyUC.New(loyaltyRepo.New(q), ex, met)
	vaults := rewardsUC.New(&rewardsUC.RewardsUseCaseCfg{
		Repo:     rewardsRepo.New(q),
		TokenUC:  s.tokens,
		Executor: ex,
		Metrics:  met,
	})
	s.cfg = EscrowUseCaseCfg{
		Repo:                   s.repo,
		TokenUC:                s.tokens,
		RewardsUC:              vaults,
		LoyaltyUC:              s.loyalty,
		Executor:               ex,
		Metrics:                met,
		TreasuryDestination:    treasury,
		MarketplaceDestination: marketplace,
	}
	s.im = New(&s.cfg)

	req := s.Require()
	_, err := s.tokens.CreateMint(s.ctx, nftMint, seller, 0)
	req.NoError(err)
	_, err = s.tokens.CreateMint(s.ctx, rewardMnt, rewards.SignerFor(rewardMnt).Address(), 6)
	req.NoError(err)
	_, err = vaults.InitializeVault(s.ctx, admin, rewardMnt)
	req.NoError(err)
	_, err = s.tokens.OpenAccount(s.ctx, buyerReward, buyer, rewardMnt)
	req.NoError(err)

	// one point per 1000 base units of volume
	_, err = s.loyalty.InitializeRegistry(s.ctx, registrar, 1_000_000)
	req.NoError(err)
	_, err = s.loyalty.RegisterProfile(s.ctx, buyer)
	req.NoError(err)

	_, err = s.tokens.Deposit(s.ctx, buyer, 5_000_000)
	req.NoError(err)
	_, err = s.tokens.Deposit(s.ctx, lateBuyer, 5_000_000)
	req.NoError(err)

	s.listing, err = s.im.CreateListing(s.ctx, s.listingParams(1))
	req.NoError(err)
}

func (s *escrowSuite) listingParams(id uint64) escrow.CreateListingParams {
	return escrow.CreateListingParams{
		Seller:             seller,
		NftMint:            nftMint,
		ListingID:          id,
		Price:              1_000_000,
		RoyaltyBps:         500,
		TreasuryBps:        200,
		MarketplaceBps:     100,
		RoyaltyDestination: creator,
	}
}

func (s *escrowSuite) execute(listing, who domain.Address) (*escrow.Listing, error) {
	return s.im.ExecuteSale(s.ctx, escrow.ExecuteSaleParams{Listing: listing, Buyer: who, Seller: seller})
}

func (s *escrowSuite) settleParams(listing, who domain.Address) escrow.SettleSaleParams {
	return escrow.SettleSaleParams{
		Listing:                listing,
		Seller:                 seller,
		Buyer:                  who,
		RoyaltyDestination:     creator,
		TreasuryDestination:    treasury,
		MarketplaceDestination: marketplace,
		RewardVault:            rewards.ConfigAddress(rewardMnt),
		RewardMint:             rewardMnt,
		BuyerRewardAccount:     buyerReward,
		RewardAuthority:        admin,
		LoyaltyAuthority:       registrar,
		RewardAmount:           500,
		LoyaltyBonusPoints:     25,
	}
}

func (s *escrowSuite) balance(account domain.Address) domain.Amount {
	acc, err := s.tokens.GetAccount(s.ctx, account)
	if err == token.ErrAccountNotFound {
		return 0
	}
	s.Require().NoError(err)
	return acc.Balance
}

func (s *escrowSuite) status(listing domain.Address) escrow.Status {
	l, err := s.im.GetListing(s.ctx, listing)
	s.Require().NoError(err)
	return l.Status
}

func (s *escrowSuite) TestCreateListing() {
	l := s.listing
	s.Equal(escrow.ListingAddress(seller, nftMint, 1), l.Address)
	s.Equal(escrow.VaultAddress(l.Address), l.EscrowVault)
	s.Equal(escrow.StatusActive, l.Status)
	s.Nil(l.Buyer)
	s.Equal(domain.Timestamp(50), l.CreatedAt)

	vault, err := s.im.GetVault(s.ctx, l.Address)
	s.Require().NoError(err)
	s.Equal(domain.Amount(0), vault.TotalDeposited)
	s.Equal(l.Address, vault.Listing)

	acc, err := s.tokens.GetAccount(s.ctx, l.EscrowVault)
	s.Require().NoError(err)
	s.True(acc.IsNative())
	s.Equal(authority.EscrowProgram, acc.Owner)

	_, err = s.im.CreateListing(s.ctx, s.listingParams(1))
	s.ErrorIs(err, domain.ErrConflict)
}

func (s *escrowSuite) TestCreateListingValidation() {
	tests := []struct {
		desc   string
		mutate func(p *escrow.CreateListingParams)
		expErr error
	}{
		{
			desc:   "zero price",
			mutate: func(p *escrow.CreateListingParams) { p.Price = 0 },
			expErr: escrow.ErrInvalidListingPrice,
		},
		{
			desc:   "fees above 100%",
			mutate: func(p *escrow.CreateListingParams) { p.RoyaltyBps, p.TreasuryBps, p.MarketplaceBps = 5000, 4000, 1001 },
			expErr: safemath.ErrInvalidFeeConfiguration,
		},
		{
			desc:   "unknown nft mint",
			mutate: func(p *escrow.CreateListingParams) { p.NftMint = stranger },
			expErr: token.ErrMintNotFound,
		},
	}
	for i, t := range tests {
		p := s.listingParams(uint64(100 + i))
		t.mutate(&p)
		_, err := s.im.CreateListing(s.ctx, p)
		s.ErrorIs(err, t.expErr, t.desc)
	}

	p := s.listingParams(200)
	p.RoyaltyBps, p.TreasuryBps, p.MarketplaceBps = 5000, 4000, 1000
	_, err := s.im.CreateListing(s.ctx, p)
	s.NoError(err, "exactly 100% in fees")
}

func (s *escrowSuite) TestSettleSplitsFees() {
	s.now = 60
	l, err := s.execute(s.listing.Address, buyer)
	s.Require().NoError(err)
	s.Equal(escrow.StatusPendingSettlement, l.Status)
	s.Require().NotNil(l.Buyer)
	s.Equal(buyer, *l.Buyer)
	s.Equal(domain.Timestamp(60), *l.SoldAt)
	s.Equal(domain.Amount(4_000_000), s.balance(buyer))
	s.Equal(domain.Amount(1_000_000), s.balance(l.EscrowVault))

	s.now = 70
	receipt, err := s.im.SettleSale(s.ctx, s.settleParams(s.listing.Address, buyer))
	s.Require().NoError(err)

	s.Equal(domain.Amount(1_000_000), receipt.AmountPaid)
	s.Equal(domain.Amount(920_000), receipt.SellerProceeds)
	s.Equal(domain.Amount(50_000), receipt.RoyaltyPaid)
	s.Equal(domain.Amount(20_000), receipt.TreasuryPaid)
	s.Equal(domain.Amount(10_000), receipt.MarketplaceFeePaid)
	s.Equal(domain.Amount(500), receipt.RewardsMinted)
	s.Equal(domain.Amount(25), receipt.LoyaltyBonusPoints)
	s.Equal(domain.Amount(1025), receipt.LoyaltyPointsAwarded)
	s.Equal(domain.Timestamp(70), receipt.Timestamp)
	s.Equal(escrow.ReceiptAddress(s.listing.Address, buyer), receipt.Address)

	s.Equal(domain.Amount(920_000), s.balance(seller))
	s.Equal(domain.Amount(50_000), s.balance(creator))
	s.Equal(domain.Amount(20_000), s.balance(treasury))
	s.Equal(domain.Amount(10_000), s.balance(marketplace))
	s.Equal(domain.Amount(0), s.balance(s.listing.EscrowVault))
	s.Equal(domain.Amount(500), s.balance(buyerReward))

	l, err = s.im.GetListing(s.ctx, s.listing.Address)
	s.Require().NoError(err)
	s.Equal(escrow.StatusSettled, l.Status)
	s.Equal(domain.Timestamp(70), *l.SettledAt)

	vault, err := s.im.GetVault(s.ctx, s.listing.Address)
	s.Require().NoError(err)
	s.Equal(domain.Amount(0), vault.TotalDeposited)

	profile, err := s.loyalty.GetProfile(s.ctx, buyer)
	s.Require().NoError(err)
	s.Equal(domain.Amount(1_000_000), profile.TotalVolume)
	s.Equal(domain.Amount(1025), profile.Points)
	s.Equal(loyalty.TierSilver, profile.Tier)

	stored, err := s.im.GetReceipt(s.ctx, s.listing.Address)
	s.Require().NoError(err)
	s.Equal(receipt, stored)
}

func (s *escrowSuite) TestGetReceiptThroughCache() {
	local := primitive.NewPrimitive("receipts", 1)
	cfg := s.cfg
	cfg.ReceiptCache = cache.New(cache.ServiceConfig{Ttl: time.Minute, Pfx: keys.PfxReceipt, Cache: local})
	cached := New(&cfg)
	key := keys.RedisKey(keys.PfxReceipt, s.listing.Address.ToLowerStr())

	_, err := cached.GetReceipt(s.ctx, s.listing.Address)
	s.ErrorIs(err, escrow.ErrReceiptNotFound)
	_, _, err = local.Get(s.ctx, key)
	s.Error(err)

	_, err = s.execute(s.listing.Address, buyer)
	s.Require().NoError(err)
	receipt, err := s.im.SettleSale(s.ctx, s.settleParams(s.listing.Address, buyer))
	s.Require().NoError(err)

	got, err := cached.GetReceipt(s.ctx, s.listing.Address)
	s.Require().NoError(err)
	s.Equal(receipt, got)
	_, _, err = local.Get(s.ctx, key)
	s.NoError(err)

	got, err = cached.GetReceipt(s.ctx, s.listing.Address)
	s.Require().NoError(err)
	s.Equal(receipt, got)
}

func (s *escrowSuite) TestSettleIsSingleUse() {
	_, err := s.execute(s.listing.Address, buyer)
	s.Require().NoError(err)
	_, err = s.im.SettleSale(s.ctx, s.settleParams(s.listing.Address, buyer))
	s.Require().NoError(err)

	_, err = s.im.SettleSale(s.ctx, s.settleParams(s.listing.Address, buyer))
	s.ErrorIs(err, escrow.ErrListingNotPending)
	s.Equal(domain.Amount(920_000), s.balance(seller))
}

func (s *escrowSuite) TestSettleRequiresPendingListing() {
	_, err := s.im.SettleSale(s.ctx, s.settleParams(s.listing.Address, buyer))
	s.ErrorIs(err, escrow.ErrListingNotPending)

	_, err = s.im.GetReceipt(s.ctx, s.listing.Address)
	s.ErrorIs(err, escrow.ErrReceiptNotFound)
}

func (s *escrowSuite) TestSettleWithoutRewards() {
	p := s.listingParams(2)
	p.RoyaltyBps, p.TreasuryBps, p.MarketplaceBps = 0, 0, 0
	l, err := s.im.CreateListing(s.ctx, p)
	s.Require().NoError(err)
	_, err = s.execute(l.Address, buyer)
	s.Require().NoError(err)

	settle := s.settleParams(l.Address, buyer)
	settle.RewardAmount = 0
	settle.RewardAuthority = stranger
	receipt, err := s.im.SettleSale(s.ctx, settle)
	s.Require().NoError(err)
	s.Equal(domain.Amount(1_000_000), receipt.SellerProceeds)
	s.Equal(domain.Amount(0), receipt.RewardsMinted)

	s.Equal(domain.Amount(1_000_000), s.balance(seller))
	s.Equal(domain.Amount(0), s.balance(buyerReward))
	// zero fees are never disbursed, so no fee wallet is touched
	_, err = s.tokens.GetAccount(s.ctx, treasury)
	s.ErrorIs(err, token.ErrAccountNotFound)
	_, err = s.tokens.GetAccount(s.ctx, creator)
	s.ErrorIs(err, token.ErrAccountNotFound)
}

func (s *escrowSuite) TestSettleValidationLeavesListingPending() {
	_, err := s.execute(s.listing.Address, buyer)
	s.Require().NoError(err)

	tests := []struct {
		desc   string
		mutate func(p *escrow.SettleSaleParams)
		expErr error
	}{
		{
			desc:   "caller is not the seller",
			mutate: func(p *escrow.SettleSaleParams) { p.Seller = stranger },
			expErr: escrow.ErrSellerMismatch,
		},
		{
			desc:   "other buyer",
			mutate: func(p *escrow.SettleSaleParams) { p.Buyer = lateBuyer },
			expErr: escrow.ErrBuyerMismatch,
		},
		{
			desc:   "other royalty destination",
			mutate: func(p *escrow.SettleSaleParams) { p.RoyaltyDestination = stranger },
			expErr: escrow.ErrRoyaltyDestinationMismatch,
		},
		{
			desc:   "other treasury",
			mutate: func(p *escrow.SettleSaleParams) { p.TreasuryDestination = stranger },
			expErr: escrow.ErrTreasuryDestinationMismatch,
		},
		{
			desc:   "other marketplace",
			mutate: func(p *escrow.SettleSaleParams) { p.MarketplaceDestination = stranger },
			expErr: escrow.ErrMarketplaceDestinationMismatch,
		},
		{
			desc:   "reward authority not the vault authority",
			mutate: func(p *escrow.SettleSaleParams) { p.RewardAuthority = stranger },
			expErr: escrow.ErrUnauthorizedRewardAuthority,
		},
		{
			desc:   "reward mint not the vault mint",
			mutate: func(p *escrow.SettleSaleParams) { p.RewardMint = nftMint },
			expErr: escrow.ErrMismatchedRewardMint,
		},
		{
			desc:   "reward account not the buyer's",
			mutate: func(p *escrow.SettleSaleParams) { p.BuyerRewardAccount = s.listing.EscrowVault },
			expErr: escrow.ErrRewardAccountMismatch,
		},
		{
			desc:   "loyalty authority not the registry authority",
			mutate: func(p *escrow.SettleSaleParams) { p.LoyaltyAuthority = stranger },
			expErr: escrow.ErrUnauthorizedLoyaltyAuthority,
		},
	}
	for _, t := range tests {
		p := s.settleParams(s.listing.Address, buyer)
		t.mutate(&p)
		_, err := s.im.SettleSale(s.ctx, p)
		s.ErrorIs(err, t.expErr, t.desc)

		s.Equal(escrow.StatusPendingSettlement, s.status(s.listing.Address), t.desc)
		s.Equal(domain.Amount(1_000_000), s.balance(s.listing.EscrowVault), t.desc)
		s.Equal(domain.Amount(0), s.balance(seller), t.desc)
		s.Equal(domain.Amount(0), s.balance(buyerReward), t.desc)
	}
}

func (s *escrowSuite) TestFailedLoyaltyCallRollsBackSettlement() {
	// lateBuyer has no loyalty profile
	_, err := s.execute(s.listing.Address, lateBuyer)
	s.Require().NoError(err)

	p := s.settleParams(s.listing.Address, lateBuyer)
	p.RewardAmount = 0
	_, err = s.im.SettleSale(s.ctx, p)
	s.ErrorIs(err, loyalty.ErrProfileNotFound)

	s.Equal(escrow.StatusPendingSettlement, s.status(s.listing.Address))
	vault, err := s.im.GetVault(s.ctx, s.listing.Address)
	s.Require().NoError(err)
	s.Equal(domain.Amount(1_000_000), vault.TotalDeposited)
	s.Equal(domain.Amount(1_000_000), s.balance(s.listing.EscrowVault))
	for _, who := range []domain.Address{seller, creator, treasury, marketplace} {
		_, err := s.tokens.GetAccount(s.ctx, who)
		s.ErrorIs(err, token.ErrAccountNotFound)
	}
	_, err = s.im.GetReceipt(s.ctx, s.listing.Address)
	s.ErrorIs(err, escrow.ErrReceiptNotFound)
}

func (s *escrowSuite) TestFailedRewardMintRollsBackSettlement() {
	_, err := s.execute(s.listing.Address, buyer)
	s.Require().NoError(err)

	p := s.settleParams(s.listing.Address, buyer)
	p.RewardVault = stranger
	_, err = s.im.SettleSale(s.ctx, p)
	s.ErrorIs(err, rewards.ErrVaultNotFound)

	s.Equal(escrow.StatusPendingSettlement, s.status(s.listing.Address))
	s.Equal(domain.Amount(1_000_000), s.balance(s.listing.EscrowVault))
	s.Equal(domain.Amount(0), s.balance(seller))

	mint, err := s.tokens.GetMint(s.ctx, rewardMnt)
	s.Require().NoError(err)
	s.Equal(domain.Amount(0), mint.Supply)
}

func (s *escrowSuite) TestExecuteExpiredListing() {
	p := s.listingParams(3)
	expiry := domain.Timestamp(100)
	p.ExpiresAt = &expiry
	l, err := s.im.CreateListing(s.ctx, p)
	s.Require().NoError(err)

	s.now = 101
	_, err = s.execute(l.Address, buyer)
	s.ErrorIs(err, escrow.ErrListingExpired)
	s.Equal(escrow.StatusActive, s.status(l.Address))
	s.Equal(domain.Amount(5_000_000), s.balance(buyer))

	s.now = 100
	_, err = s.execute(l.Address, buyer)
	s.NoError(err, "the expiry second itself is still open")
}

func (s *escrowSuite) TestExecuteFundsOnce() {
	_, err := s.execute(s.listing.Address, buyer)
	s.Require().NoError(err)

	_, err = s.execute(s.listing.Address, lateBuyer)
	s.ErrorIs(err, escrow.ErrListingNotActive)
	s.Equal(domain.Amount(5_000_000), s.balance(lateBuyer))
}

func (s *escrowSuite) TestExecuteOnFundedVault() {
	vault, err := s.repo.FindVault(s.ctx, s.listing.EscrowVault)
	s.Require().NoError(err)
	vault.TotalDeposited = 1
	s.Require().NoError(s.repo.UpsertVault(s.ctx, vault))

	_, err = s.execute(s.listing.Address, buyer)
	s.ErrorIs(err, escrow.ErrEscrowAlreadyFunded)
	s.Equal(escrow.StatusActive, s.status(s.listing.Address))

	_, err = s.im.CancelListing(s.ctx, seller, s.listing.Address)
	s.ErrorIs(err, escrow.ErrOutstandingEscrowBalance)
}

func (s *escrowSuite) TestExecuteValidation() {
	_, err := s.im.ExecuteSale(s.ctx, escrow.ExecuteSaleParams{Listing: s.listing.Address, Buyer: buyer, Seller: stranger})
	s.ErrorIs(err, escrow.ErrSellerMismatch)

	_, err = s.execute(s.listing.Address, stranger)
	s.ErrorIs(err, token.ErrAccountNotFound)

	_, err = s.execute(stranger, buyer)
	s.ErrorIs(err, escrow.ErrListingNotFound)

	_, err = s.tokens.Deposit(s.ctx, stranger, 10)
	s.Require().NoError(err)
	_, err = s.execute(s.listing.Address, stranger)
	s.ErrorIs(err, token.ErrInsufficientFunds)
	s.Equal(escrow.StatusActive, s.status(s.listing.Address))
}

func (s *escrowSuite) TestCancelListing() {
	_, err := s.im.CancelListing(s.ctx, stranger, s.listing.Address)
	s.ErrorIs(err, escrow.ErrSellerMismatch)

	s.now = 80
	l, err := s.im.CancelListing(s.ctx, seller, s.listing.Address)
	s.Require().NoError(err)
	s.Equal(escrow.StatusCancelled, l.Status)
	s.Equal(domain.Timestamp(80), *l.SettledAt)

	_, err = s.im.CancelListing(s.ctx, seller, s.listing.Address)
	s.ErrorIs(err, escrow.ErrListingNotActive)
	_, err = s.execute(s.listing.Address, buyer)
	s.ErrorIs(err, escrow.ErrListingNotActive)
}

func (s *escrowSuite) TestCancelPendingListing() {
	_, err := s.execute(s.listing.Address, buyer)
	s.Require().NoError(err)

	_, err = s.im.CancelListing(s.ctx, seller, s.listing.Address)
	s.ErrorIs(err, escrow.ErrListingNotActive)
}

func (s *escrowSuite) TestListListings() {
	s.now = 60
	second, err := s.im.CreateListing(s.ctx, s.listingParams(2))
	s.Require().NoError(err)
	_, err = s.execute(second.Address, buyer)
	s.Require().NoError(err)

	all, err := s.im.ListListings(s.ctx, escrow.ListingFilter{})
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	s.Equal(second.Address, all[0].Address)

	active := escrow.StatusActive
	listings, err := s.im.ListListings(s.ctx, escrow.ListingFilter{Status: &active})
	s.Require().NoError(err)
	s.Require().Len(listings, 1)
	s.Equal(s.listing.Address, listings[0].Address)

	other := stranger
	listings, err = s.im.ListListings(s.ctx, escrow.ListingFilter{Seller: &other})
	s.Require().NoError(err)
	s.Len(listings, 0)

	bogus := escrow.Status("sold")
	_, err = s.im.ListListings(s.ctx, escrow.ListingFilter{Status: &bogus})
	s.ErrorIs(err, domain.ErrBadParamInput)
}
