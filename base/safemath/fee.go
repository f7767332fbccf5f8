package safemath

import (
	"github.com/x-xyz/cloutledger/domain"
)

var ErrInvalidFeeConfiguration = domain.NewError(domain.KindValidation, "InvalidFeeConfiguration", "total fee configuration exceeds 100%")

// FeeSplit is a royalty/treasury/marketplace configuration in basis points.
type FeeSplit struct {
	RoyaltyBps     uint16 `json:"royaltyBps" bson:"royaltyBps"`
	TreasuryBps    uint16 `json:"treasuryBps" bson:"treasuryBps"`
	MarketplaceBps uint16 `json:"marketplaceBps" bson:"marketplaceBps"`
}

// Validate rejects splits whose sum exceeds 10000 bps.
func (f FeeSplit) Validate() error {
	total := uint64(f.RoyaltyBps) + uint64(f.TreasuryBps) + uint64(f.MarketplaceBps)
	if total > BpsDenominator {
		return ErrInvalidFeeConfiguration
	}
	return nil
}

// Fee returns floor(amount * bps / 10000).
func Fee(amount domain.Amount, bps uint16) (domain.Amount, error) {
	product, err := Mul(amount, domain.Amount(bps))
	if err != nil {
		return 0, err
	}
	return Div(product, BpsDenominator)
}

// Breakdown is how one price is split among parties.
type Breakdown struct {
	Royalty      domain.Amount
	Treasury     domain.Amount
	Marketplace  domain.Amount
	TotalFees    domain.Amount
	SellerPayout domain.Amount
}

// Split computes each fee over price and the remainder owed to the seller.
// The fee total is re-checked against price even for validated splits.
func (f FeeSplit) Split(price domain.Amount) (Breakdown, error) {
	var (
		b   Breakdown
		err error
	)
	if b.Royalty, err = Fee(price, f.RoyaltyBps); err != nil {
		return Breakdown{}, err
	}
	if b.Treasury, err = Fee(price, f.TreasuryBps); err != nil {
		return Breakdown{}, err
	}
	if b.Marketplace, err = Fee(price, f.MarketplaceBps); err != nil {
		return Breakdown{}, err
	}
	if b.TotalFees, err = Add(b.Royalty, b.Treasury); err != nil {
		return Breakdown{}, err
	}
	if b.TotalFees, err = Add(b.TotalFees, b.Marketplace); err != nil {
		return Breakdown{}, err
	}
	if b.TotalFees > price {
		return Breakdown{}, ErrInvalidFeeConfiguration
	}
	if b.SellerPayout, err = Sub(price, b.TotalFees); err != nil {
		return Breakdown{}, err
	}
	return b, nil
}
