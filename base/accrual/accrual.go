// Package accrual implements reward-per-share distribution with integer
// fixed-point arithmetic.
//
// A pool keeps one accumulator: the reward earned by a single staked unit
// since the pool was created, scaled by Scale. A position records the
// accumulator value at its last touch (its checkpoint), so settling a
// position is O(1) regardless of how many participants the pool has.
//
// Every operation that changes a pool or a position's amount must call
// AccruePool and then AccruePosition for the acting position before applying
// its own effect.
package accrual

import (
	"github.com/holiman/uint256"

	"github.com/x-xyz/cloutledger/domain"
)

// Scale is the fixed-point factor of the accumulator.
const Scale = 1_000_000_000

var scale = uint256.NewInt(Scale)

// Pool is the accrual state of a staking pool.
type Pool struct {
	RewardRate     domain.Amount    `json:"rewardRate" bson:"rewardRate"`
	TotalStaked    domain.Amount    `json:"totalStaked" bson:"totalStaked"`
	RewardPerShare domain.U128      `json:"rewardPerShare" bson:"rewardPerShare"`
	LastUpdate     domain.Timestamp `json:"lastUpdate" bson:"lastUpdate"`
}

// Position is the accrual state of one participant in a pool.
type Position struct {
	Amount         domain.Amount `json:"amount" bson:"amount"`
	Checkpoint     domain.U128   `json:"checkpoint" bson:"checkpoint"`
	PendingRewards domain.Amount `json:"pendingRewards" bson:"pendingRewards"`
}

// AccruePool advances the pool accumulator to now.
//
// Calls with now at or before the last update are no-ops. Time that passes
// while nothing is staked, or while the rate is zero, only moves the clock:
// that emission is forfeited.
func AccruePool(p *Pool, now domain.Timestamp) error {
	if now <= p.LastUpdate {
		return nil
	}
	if p.TotalStaked == 0 || p.RewardRate == 0 {
		p.LastUpdate = now
		return nil
	}

	// now > LastUpdate, so the unsigned difference is exact.
	elapsed := uint256.NewInt(uint64(now) - uint64(p.LastUpdate))
	emitted, err := mul128(elapsed, uint256.NewInt(p.RewardRate.Uint64()))
	if err != nil {
		return err
	}
	scaled, err := mul128(emitted, scale)
	if err != nil {
		return err
	}
	increment := new(uint256.Int).Div(scaled, uint256.NewInt(p.TotalStaked.Uint64()))

	acc, err := domain.U128FromInt(new(uint256.Int).Add(p.RewardPerShare.Int(), increment))
	if err != nil {
		return err
	}
	p.RewardPerShare = acc
	p.LastUpdate = now
	return nil
}

// AccruePosition credits pos with its share of the accumulator growth since
// its checkpoint and moves the checkpoint to the pool accumulator.
//
// A zero-amount position only resynchronizes its checkpoint, so it can never
// replay accumulator growth from before it was funded again.
func AccruePosition(p *Pool, pos *Position) error {
	if pos.Amount == 0 {
		pos.Checkpoint = p.RewardPerShare
		return nil
	}
	if p.RewardPerShare.Cmp(pos.Checkpoint) < 0 {
		// accumulator behind the checkpoint: resync without credit
		pos.Checkpoint = p.RewardPerShare
		return nil
	}

	delta := new(uint256.Int).Sub(p.RewardPerShare.Int(), pos.Checkpoint.Int())
	if delta.IsZero() {
		return nil
	}

	product, err := mul128(uint256.NewInt(pos.Amount.Uint64()), delta)
	if err != nil {
		return err
	}
	earned := new(uint256.Int).Div(product, scale)
	if !earned.IsZero() {
		pending := new(uint256.Int).Add(uint256.NewInt(pos.PendingRewards.Uint64()), earned)
		if !pending.IsUint64() {
			return domain.ErrMathOverflow
		}
		pos.PendingRewards = domain.Amount(pending.Uint64())
	}
	pos.Checkpoint = p.RewardPerShare
	return nil
}

// Preview returns the pending rewards pos would hold if it were settled at
// now, without touching either record.
func Preview(p Pool, pos Position, now domain.Timestamp) (domain.Amount, error) {
	if err := AccruePool(&p, now); err != nil {
		return 0, err
	}
	if err := AccruePosition(&p, &pos); err != nil {
		return 0, err
	}
	return pos.PendingRewards, nil
}

// mul128 multiplies and fails if the product does not fit in 128 bits.
func mul128(a, b *uint256.Int) (*uint256.Int, error) {
	product, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow || product.BitLen() > 128 {
		return nil, domain.ErrMathOverflow
	}
	return product, nil
}
