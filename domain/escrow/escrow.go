// Package escrow is the sale escrow settlement engine. A listing moves
// Active -> PendingSettlement -> Settled, or Active -> Cancelled; both end
// states are terminal.
package escrow

import (
	"github.com/x-xyz/cloutledger/base/ctx"
	"github.com/x-xyz/cloutledger/base/safemath"
	"github.com/x-xyz/cloutledger/domain"
	"github.com/x-xyz/cloutledger/domain/authority"
)

var (
	ErrListingNotActive               = domain.NewError(domain.KindValidation, "ListingNotActive", "listing is not active")
	ErrListingNotPending              = domain.NewError(domain.KindValidation, "ListingNotPending", "listing must be pending settlement for this operation")
	ErrInvalidListingPrice            = domain.NewError(domain.KindValidation, "InvalidListingPrice", "listing price must be greater than zero")
	ErrMissingBuyer                   = domain.NewError(domain.KindValidation, "MissingBuyer", "no buyer recorded for this listing")
	ErrBuyerMismatch                  = domain.NewError(domain.KindValidation, "BuyerMismatch", "buyer does not match listing state")
	ErrSellerMismatch                 = domain.NewError(domain.KindAuthorization, "SellerMismatch", "seller does not match listing state")
	ErrRoyaltyDestinationMismatch     = domain.NewError(domain.KindValidation, "RoyaltyDestinationMismatch", "royalty destination does not match listing configuration")
	ErrTreasuryDestinationMismatch    = domain.NewError(domain.KindValidation, "TreasuryDestinationMismatch", "treasury destination does not match configuration")
	ErrMarketplaceDestinationMismatch = domain.NewError(domain.KindValidation, "MarketplaceDestinationMismatch", "marketplace fee destination does not match configuration")
	ErrInsufficientEscrowBalance      = domain.NewError(domain.KindState, "InsufficientEscrowBalance", "escrow vault balance is insufficient")
	ErrOutstandingEscrowBalance       = domain.NewError(domain.KindState, "OutstandingEscrowBalance", "escrow vault still holds funds")
	ErrEscrowAlreadyFunded            = domain.NewError(domain.KindValidation, "EscrowAlreadyFunded", "escrow vault already funded for this listing")
	ErrUnauthorizedLoyaltyAuthority   = domain.NewError(domain.KindAuthorization, "UnauthorizedLoyaltyAuthority", "loyalty authority does not match registry configuration")
	ErrUnauthorizedRewardAuthority    = domain.NewError(domain.KindAuthorization, "UnauthorizedRewardAuthority", "reward authority does not match vault configuration")
	ErrMismatchedRewardMint           = domain.NewError(domain.KindValidation, "MismatchedRewardMint", "reward mint does not match vault configuration")
	ErrRewardAccountMismatch          = domain.NewError(domain.KindValidation, "RewardAccountMismatch", "reward account is not the buyer's account of the reward mint")
	ErrListingExpired                 = domain.NewError(domain.KindValidation, "ListingExpired", "the listing has expired")
	ErrListingNotFound                = domain.NewError(domain.KindNotFound, "ListingNotFound", "listing does not exist")
	ErrVaultNotFound                  = domain.NewError(domain.KindNotFound, "EscrowVaultNotFound", "escrow vault does not exist")
	ErrReceiptNotFound                = domain.NewError(domain.KindNotFound, "ReceiptNotFound", "sale receipt does not exist")
)

type Status string

const (
	StatusActive            Status = "active"
	StatusPendingSettlement Status = "pending_settlement"
	StatusSettled           Status = "settled"
	StatusCancelled         Status = "cancelled"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusPendingSettlement, StatusSettled, StatusCancelled:
		return true
	}
	return false
}

type Listing struct {
	Address     domain.Address    `json:"address" bson:"_id"`
	EscrowVault domain.Address    `json:"escrowVault" bson:"escrowVault"`
	Seller      domain.Address    `json:"seller" bson:"seller"`
	Buyer       *domain.Address   `json:"buyer,omitempty" bson:"buyer"`
	NftMint     domain.Address    `json:"nftMint" bson:"nftMint"`
	ListingID   uint64            `json:"listingId" bson:"listingId"`
	Price       domain.Amount     `json:"price" bson:"price"`
	CreatedAt   domain.Timestamp  `json:"createdAt" bson:"createdAt"`
	ExpiresAt   *domain.Timestamp `json:"expiresAt,omitempty" bson:"expiresAt"`
	SoldAt      *domain.Timestamp `json:"soldAt,omitempty" bson:"soldAt"`
	SettledAt   *domain.Timestamp `json:"settledAt,omitempty" bson:"settledAt"`
	Status      Status            `json:"status" bson:"status"`

	safemath.FeeSplit `bson:",inline"`

	RoyaltyDestination domain.Address `json:"royaltyDestination" bson:"royaltyDestination"`
}

// IsExpired reports whether the listing carries an expiry that lies before now.
func (l *Listing) IsExpired(now domain.Timestamp) bool {
	return l.ExpiresAt != nil && now > *l.ExpiresAt
}

// Vault is the custody record of one listing's escrowed value. Its native
// account lives at the same address, held by the escrow program.
type Vault struct {
	Address        domain.Address `json:"address" bson:"_id"`
	Listing        domain.Address `json:"listing" bson:"listing"`
	TotalDeposited domain.Amount  `json:"totalDeposited" bson:"totalDeposited"`
}

// Receipt is written once, when a listing settles.
type Receipt struct {
	Address              domain.Address   `json:"address" bson:"_id"`
	Listing              domain.Address   `json:"listing" bson:"listing"`
	Buyer                domain.Address   `json:"buyer" bson:"buyer"`
	Seller               domain.Address   `json:"seller" bson:"seller"`
	AmountPaid           domain.Amount    `json:"amountPaid" bson:"amountPaid"`
	SellerProceeds       domain.Amount    `json:"sellerProceeds" bson:"sellerProceeds"`
	RoyaltyPaid          domain.Amount    `json:"royaltyPaid" bson:"royaltyPaid"`
	TreasuryPaid         domain.Amount    `json:"treasuryPaid" bson:"treasuryPaid"`
	MarketplaceFeePaid   domain.Amount    `json:"marketplaceFeePaid" bson:"marketplaceFeePaid"`
	RewardsMinted        domain.Amount    `json:"rewardsMinted" bson:"rewardsMinted"`
	LoyaltyBonusPoints   domain.Amount    `json:"loyaltyBonusPoints" bson:"loyaltyBonusPoints"`
	LoyaltyPointsAwarded domain.Amount    `json:"loyaltyPointsAwarded" bson:"loyaltyPointsAwarded"`
	Timestamp            domain.Timestamp `json:"timestamp" bson:"timestamp"`
}

func ListingAddress(seller, nftMint domain.Address, listingID uint64) domain.Address {
	return authority.Derive(authority.EscrowProgram, authority.RoleListing, authority.Seed(seller), authority.Seed(nftMint), authority.Uint64Seed(listingID))
}

func VaultAddress(listing domain.Address) domain.Address {
	return authority.Derive(authority.EscrowProgram, authority.RoleEscrowVault, authority.Seed(listing))
}

func ReceiptAddress(listing, buyer domain.Address) domain.Address {
	return authority.Derive(authority.EscrowProgram, authority.RoleReceipt, authority.Seed(listing), authority.Seed(buyer))
}

type CreateListingParams struct {
	Seller             domain.Address    `json:"-"`
	NftMint            domain.Address    `json:"nftMint" validate:"required,address"`
	ListingID          uint64            `json:"listingId"`
	Price              domain.Amount     `json:"price"`
	ExpiresAt          *domain.Timestamp `json:"expiresAt"`
	RoyaltyBps         uint16            `json:"royaltyBps"`
	TreasuryBps        uint16            `json:"treasuryBps"`
	MarketplaceBps     uint16            `json:"marketplaceBps"`
	RoyaltyDestination domain.Address    `json:"royaltyDestination" validate:"required,address"`
}

type ExecuteSaleParams struct {
	Listing domain.Address `json:"-"`
	Buyer   domain.Address `json:"-"`
	Seller  domain.Address `json:"seller" validate:"required,address"`
}

// SettleSaleParams names every party of a settlement. Seller is the caller.
// The reward fields are only consulted when RewardAmount is non-zero.
type SettleSaleParams struct {
	Listing                domain.Address `json:"-"`
	Seller                 domain.Address `json:"-"`
	Buyer                  domain.Address `json:"buyer" validate:"required,address"`
	RoyaltyDestination     domain.Address `json:"royaltyDestination" validate:"required,address"`
	TreasuryDestination    domain.Address `json:"treasuryDestination" validate:"required,address"`
	MarketplaceDestination domain.Address `json:"marketplaceDestination" validate:"required,address"`
	RewardVault            domain.Address `json:"rewardVault" validate:"omitempty,address"`
	RewardMint             domain.Address `json:"rewardMint" validate:"omitempty,address"`
	BuyerRewardAccount     domain.Address `json:"buyerRewardAccount" validate:"omitempty,address"`
	// RewardAuthority and LoyaltyAuthority co-sign the settlement.
	RewardAuthority        domain.Address `json:"rewardAuthority" validate:"omitempty,address"`
	LoyaltyAuthority       domain.Address `json:"loyaltyAuthority" validate:"required,address"`
	RewardAmount           domain.Amount  `json:"rewardAmount"`
	LoyaltyBonusPoints     domain.Amount  `json:"loyaltyBonusPoints"`
}

type ListingFilter struct {
	Seller *domain.Address `query:"seller" bson:"seller"`
	Status *Status         `query:"status" bson:"status"`
	Offset int             `query:"offset" bson:"-"`
	Limit  int             `query:"limit" bson:"-"`
}

type Repo interface {
	FindListing(c ctx.Ctx, address domain.Address) (*Listing, error)
	FindListings(c ctx.Ctx, filter ListingFilter) ([]*Listing, error)
	InsertListing(c ctx.Ctx, listing *Listing) error
	UpsertListing(c ctx.Ctx, listing *Listing) error

	FindVault(c ctx.Ctx, address domain.Address) (*Vault, error)
	InsertVault(c ctx.Ctx, vault *Vault) error
	UpsertVault(c ctx.Ctx, vault *Vault) error

	FindReceipt(c ctx.Ctx, address domain.Address) (*Receipt, error)
	InsertReceipt(c ctx.Ctx, receipt *Receipt) error
}

type Usecase interface {
	CreateListing(c ctx.Ctx, params CreateListingParams) (*Listing, error)
	// CancelListing is only allowed while the listing is active and unfunded.
	CancelListing(c ctx.Ctx, seller, listing domain.Address) (*Listing, error)
	// ExecuteSale moves the listing price from the buyer's wallet into escrow.
	ExecuteSale(c ctx.Ctx, params ExecuteSaleParams) (*Listing, error)
	// SettleSale disburses the escrowed price to the seller and fee
	// destinations, mints buyer rewards, records loyalty activity and writes
	// the receipt, all or nothing.
	SettleSale(c ctx.Ctx, params SettleSaleParams) (*Receipt, error)

	GetListing(c ctx.Ctx, listing domain.Address) (*Listing, error)
	GetVault(c ctx.Ctx, listing domain.Address) (*Vault, error)
	GetReceipt(c ctx.Ctx, listing domain.Address) (*Receipt, error)
	ListListings(c ctx.Ctx, filter ListingFilter) ([]*Listing, error)
}
