// Copyright (c) 2025 The Stakewheel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package distributions owns the sequence of reward distributions (epochs)
// and the cumulative reward-per-power accumulator.
//
// Stake present since before the open epoch ("full power") earns through the
// accumulator. Stake that arrived during the open epoch ("partial power")
// earns a pro-rated slice of that one epoch, weighted by amount x time
// present. Both are closed-form: no operation iterates stakes.
package distributions

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/stakewheel/stakewheel/pool/stakes"
	"github.com/stakewheel/stakewheel/reverts"
	"github.com/stakewheel/stakewheel/slots"
	"github.com/stakewheel/stakewheel/wheel"
)

var (
	slotEpochs         = slots.NameToSlot("epochs")
	slotLastClosed     = slots.NameToSlot("epochs-last-closed")
	slotRewardPerPower = slots.NameToSlot("reward-per-power")
)

// Epoch is the record of one reward distribution. While the epoch is open only
// PendingStaked and PowerXTimeDelta accumulate; CloseEpoch freezes the rest.
type Epoch struct {
	ClosedAt               uint64
	Reward                 *big.Int
	RewardPerPowerSnapshot *big.Int
	RewardForPartialPower  *big.Int
	PowerXTimeDelta        *big.Int
	PendingStaked          *big.Int
}

// normalize replaces nil big fields with zeros so callers can do math on
// untouched (implicitly open, empty) epoch records.
func (e *Epoch) normalize() *Epoch {
	if e.Reward == nil {
		e.Reward = new(big.Int)
	}
	if e.RewardPerPowerSnapshot == nil {
		e.RewardPerPowerSnapshot = new(big.Int)
	}
	if e.RewardForPartialPower == nil {
		e.RewardForPartialPower = new(big.Int)
	}
	if e.PowerXTimeDelta == nil {
		e.PowerXTimeDelta = new(big.Int)
	}
	if e.PendingStaked == nil {
		e.PendingStaked = new(big.Int)
	}
	return e
}

// MaxPowerXTime returns the time-weighted power the epoch's pending stake
// would have realized had all of it arrived at the epoch start.
func (e *Epoch) MaxPowerXTime(prevClosedAt uint64) *big.Int {
	span := new(big.Int).SetUint64(e.ClosedAt - prevClosedAt)
	return span.Mul(e.PendingStaked, span)
}

// RealPowerXTime returns the time-weighted power actually realized by the
// epoch's pending stake.
func (e *Epoch) RealPowerXTime(prevClosedAt uint64) *big.Int {
	max := e.MaxPowerXTime(prevClosedAt)
	return max.Sub(max, e.PowerXTimeDelta)
}

// Service manages epoch records. Epoch 0 is a sentinel carrying only the pool
// creation time; epoch lastClosed+1 is always implicitly open.
type Service struct {
	epochs         *slots.Mapping[wheel.EpochID, *Epoch]
	lastClosed     *slots.Uint64
	rewardPerPower *slots.Uint256
}

func New(sctx *slots.Context) *Service {
	return &Service{
		epochs:         slots.NewMapping[wheel.EpochID, *Epoch](sctx, slotEpochs),
		lastClosed:     slots.NewUint64(sctx, slotLastClosed),
		rewardPerPower: slots.NewUint256(sctx, slotRewardPerPower),
	}
}

// Initialize writes the sentinel epoch 0. It must be called exactly once
// before any other operation.
func (s *Service) Initialize(now uint64) error {
	if s.epochs.Has(0) {
		return errors.New("already initialized")
	}
	entry := (&Epoch{ClosedAt: now}).normalize()
	if err := s.epochs.Set(0, entry); err != nil {
		return errors.Wrap(err, "failed to set sentinel epoch")
	}
	return nil
}

// LastClosed returns the id of the most recently closed epoch.
func (s *Service) LastClosed() (wheel.EpochID, error) {
	last, err := s.lastClosed.Get()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get last closed epoch")
	}
	return wheel.EpochID(last), nil
}

// OpenEpoch returns the id of the currently open epoch.
func (s *Service) OpenEpoch() (wheel.EpochID, error) {
	last, err := s.LastClosed()
	if err != nil {
		return 0, err
	}
	return last + 1, nil
}

// Get returns the epoch record and whether that epoch has been closed.
// Untouched open epochs read as zero-valued records.
func (s *Service) Get(id wheel.EpochID) (*Epoch, bool, error) {
	entry, err := s.epochs.Get(id)
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to get epoch")
	}
	last, err := s.LastClosed()
	if err != nil {
		return nil, false, err
	}
	return entry.normalize(), id <= last, nil
}

// RewardPerPower returns the current value of the global accumulator,
// scaled by wheel.Magnitude.
func (s *Service) RewardPerPower() (*big.Int, error) {
	v, err := s.rewardPerPower.Get()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get reward per power")
	}
	return v, nil
}

// openEpochStart returns the time the currently open epoch started, i.e. when
// the previous epoch closed.
func (s *Service) openEpochStart() (uint64, error) {
	last, err := s.LastClosed()
	if err != nil {
		return 0, err
	}
	entry, _, err := s.Get(last)
	if err != nil {
		return 0, err
	}
	return entry.ClosedAt, nil
}

// RecordArrival accounts a stake of the given amount arriving in the open
// epoch. The recorded delta is the time-weighted power the stake missed by
// not being present from the epoch start.
func (s *Service) RecordArrival(amount *big.Int, arrivedAt uint64) error {
	id, err := s.OpenEpoch()
	if err != nil {
		return err
	}
	start, err := s.openEpochStart()
	if err != nil {
		return err
	}
	if arrivedAt < start {
		return errors.New("arrival predates open epoch")
	}

	entry, _, err := s.Get(id)
	if err != nil {
		return err
	}
	entry.PendingStaked.Add(entry.PendingStaked, amount)
	missed := new(big.Int).SetUint64(arrivedAt - start)
	entry.PowerXTimeDelta.Add(entry.PowerXTimeDelta, missed.Mul(amount, missed))

	if err := s.epochs.Set(id, entry); err != nil {
		return errors.Wrap(err, "failed to set epoch")
	}
	return nil
}

// ReverseArrival undoes RecordArrival for a stake leaving the open epoch it
// was created in. It is the exact symmetric inverse.
func (s *Service) ReverseArrival(amount *big.Int, arrivedAt uint64) error {
	id, err := s.OpenEpoch()
	if err != nil {
		return err
	}
	start, err := s.openEpochStart()
	if err != nil {
		return err
	}
	if arrivedAt < start {
		return errors.New("arrival predates open epoch")
	}

	entry, _, err := s.Get(id)
	if err != nil {
		return err
	}
	entry.PendingStaked.Sub(entry.PendingStaked, amount)
	missed := new(big.Int).SetUint64(arrivedAt - start)
	entry.PowerXTimeDelta.Sub(entry.PowerXTimeDelta, missed.Mul(amount, missed))
	if entry.PendingStaked.Sign() < 0 || entry.PowerXTimeDelta.Sign() < 0 {
		return errors.New("arrival reversal underflow")
	}

	if err := s.epochs.Set(id, entry); err != nil {
		return errors.Wrap(err, "failed to set epoch")
	}
	return nil
}

// CloseEpoch distributes reward over the power present in the open epoch and
// freezes it. The next epoch id becomes open with fresh counters.
//
// Power splits in two parts. Stake present since before the epoch opened
// counts at face value (full power). Stake that arrived during the epoch
// counts pro-rated by the time it was present (partial power), computed in
// closed form from the accumulated arrival deltas:
//
//	realized = maxPowerXTime - sum(amount_i x (arrival_i - epochStart))
//
// The full-power share feeds the global accumulator; the remainder of the
// integer division stays in the partial bucket on purpose (partial stakes
// absorb the rounding dust).
func (s *Service) CloseEpoch(reward *big.Int, now uint64, totalStaked *big.Int) (wheel.EpochID, *Epoch, error) {
	last, err := s.LastClosed()
	if err != nil {
		return 0, nil, err
	}
	prev, _, err := s.Get(last)
	if err != nil {
		return 0, nil, err
	}
	id := last + 1
	entry, _, err := s.Get(id)
	if err != nil {
		return 0, nil, err
	}

	fullPower := new(big.Int).Sub(totalStaked, entry.PendingStaked)
	if fullPower.Sign() < 0 {
		return 0, nil, errors.New("pending stake exceeds total staked")
	}

	partialPower := new(big.Int)
	if entry.PendingStaked.Sign() > 0 {
		span := new(big.Int).SetUint64(now - prev.ClosedAt)
		maxPXT := new(big.Int).Mul(entry.PendingStaked, span)
		if maxPXT.Sign() > 0 {
			realPXT := new(big.Int).Sub(maxPXT, entry.PowerXTimeDelta)
			partialPower.Mul(entry.PendingStaked, realPXT)
			partialPower.Div(partialPower, maxPXT)
		}
	}

	totalPower := new(big.Int).Add(fullPower, partialPower)
	if totalPower.Sign() == 0 {
		return 0, nil, reverts.ErrNoActivePower
	}

	// truncates toward zero; the remainder accrues to the partial bucket
	rewardForFull := new(big.Int).Mul(reward, fullPower)
	rewardForFull.Div(rewardForFull, totalPower)

	if fullPower.Sign() > 0 {
		delta := new(big.Int).Mul(wheel.Magnitude, rewardForFull)
		delta.Div(delta, fullPower)
		if err := s.rewardPerPower.Add(delta); err != nil {
			return 0, nil, errors.Wrap(err, "failed to grow reward per power")
		}
	}

	snapshot, err := s.RewardPerPower()
	if err != nil {
		return 0, nil, err
	}

	entry.ClosedAt = now
	entry.Reward = reward
	entry.RewardPerPowerSnapshot = snapshot
	entry.RewardForPartialPower = new(big.Int).Sub(reward, rewardForFull)

	if err := s.epochs.Set(id, entry); err != nil {
		return 0, nil, errors.Wrap(err, "failed to set epoch")
	}
	if err := s.lastClosed.Set(uint64(id)); err != nil {
		return 0, nil, errors.Wrap(err, "failed to set last closed epoch")
	}
	return id, entry, nil
}

// Accumulated returns the total reward ever attributed to the stake,
// ignoring withdrawals.
func (s *Service) Accumulated(st *stakes.Stake) (*big.Int, error) {
	last, err := s.LastClosed()
	if err != nil {
		return nil, err
	}
	if st.FirstEpoch > last {
		// nothing distributed since this stake arrived
		return new(big.Int), nil
	}

	first, _, err := s.Get(st.FirstEpoch)
	if err != nil {
		return nil, err
	}
	prev, _, err := s.Get(st.FirstEpoch - 1)
	if err != nil {
		return nil, err
	}

	// full-power reward accrued in every epoch after the first one
	current, err := s.RewardPerPower()
	if err != nil {
		return nil, err
	}
	fullReward := new(big.Int).Sub(current, first.RewardPerPowerSnapshot)
	fullReward.Mul(fullReward, st.Amount)
	fullReward.Div(fullReward, wheel.Magnitude)

	// partial-power reward for the epoch the stake was created in
	realPXT := first.RealPowerXTime(prev.ClosedAt)
	if realPXT.Sign() > 0 {
		stakePXT := new(big.Int).SetUint64(first.ClosedAt - st.CreatedAt)
		stakePXT.Mul(st.Amount, stakePXT)

		partial := new(big.Int).Mul(first.RewardForPartialPower, stakePXT)
		partial.Div(partial, realPXT)
		fullReward.Add(fullReward, partial)
	}
	return fullReward, nil
}
