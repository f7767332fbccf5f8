// Package amount converts base-unit amounts to and from display decimals.
package amount

import (
	"math/big"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/xerrors"

	"github.com/x-xyz/cloutledger/base/ctx"
	"github.com/x-xyz/cloutledger/base/log"
	"github.com/x-xyz/cloutledger/domain"
	"github.com/x-xyz/cloutledger/domain/token"
)

// NativeDecimals is the precision of native value (1e9 base units per unit).
const NativeDecimals = 9

var (
	ErrPrecision = domain.NewError(domain.KindValidation, "InvalidPrecision", "amount has more decimals than the mint")
	ErrRange     = domain.NewError(domain.KindArithmetic, "AmountOutOfRange", "amount does not fit in 64 bits")
)

var maxAmount = decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(domain.MaxAmount)), 0)

// ToDecimal scales value down by decimals.
func ToDecimal(value domain.Amount, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(value.Uint64()), -int32(decimals))
}

// FromDecimal scales d up by decimals. d must be non-negative, whole at that
// precision and within range.
func FromDecimal(d decimal.Decimal, decimals uint8) (domain.Amount, error) {
	if d.IsNegative() {
		return 0, ErrRange
	}
	scaled := d.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, ErrPrecision
	}
	if scaled.GreaterThan(maxAmount) {
		return 0, ErrRange
	}
	return domain.Amount(scaled.BigInt().Uint64()), nil
}

// Formatter resolves mint precision and caches it. Decimals never change
// once a mint exists.
type Formatter interface {
	Format(c ctx.Ctx, mint domain.Address, value domain.Amount) (decimal.Decimal, error)
	Parse(c ctx.Ctx, mint domain.Address, display string) (domain.Amount, error)
}

type impl struct {
	tokens token.Usecase

	// mutex protected members
	mutex    sync.Mutex
	decimals map[domain.Address]uint8
}

func NewFormatter(tokens token.Usecase) Formatter {
	return &impl{
		tokens:   tokens,
		decimals: map[domain.Address]uint8{domain.NativeMint: NativeDecimals},
	}
}

func (f *impl) getDecimals(c ctx.Ctx, mint domain.Address) (uint8, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if d, ok := f.decimals[mint]; ok {
		return d, nil
	}
	m, err := f.tokens.GetMint(c, mint)
	if err != nil {
		c.WithFields(log.Fields{"mint": mint, "err": err}).Error("tokens.GetMint failed")
		return 0, err
	}
	f.decimals[mint] = m.Decimals
	return m.Decimals, nil
}

func (f *impl) Format(c ctx.Ctx, mint domain.Address, value domain.Amount) (decimal.Decimal, error) {
	d, err := f.getDecimals(c, mint)
	if err != nil {
		return decimal.Zero, err
	}
	return ToDecimal(value, d), nil
}

func (f *impl) Parse(c ctx.Ctx, mint domain.Address, display string) (domain.Amount, error) {
	d, err := f.getDecimals(c, mint)
	if err != nil {
		return 0, err
	}
	v, err := decimal.NewFromString(display)
	if err != nil {
		return 0, xerrors.Errorf("parse %q (%s): %w", display, err.Error(), domain.ErrBadParamInput)
	}
	return FromDecimal(v, d)
}
