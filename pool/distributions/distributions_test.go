// Copyright (c) 2025 The Stakewheel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package distributions

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stakewheel/stakewheel/pool/stakes"
	"github.com/stakewheel/stakewheel/reverts"
	"github.com/stakewheel/stakewheel/slots"
	"github.com/stakewheel/stakewheel/state"
	"github.com/stakewheel/stakewheel/wheel"
)

func newTestService(t *testing.T, createdAt uint64) *Service {
	addr := wheel.BytesToAddress([]byte("pool"))
	svc := New(slots.NewContext(addr, state.NewMem()))
	assert.NoError(t, svc.Initialize(createdAt))
	return svc
}

func stakeRecord(amount int64, createdAt uint64, epoch wheel.EpochID) *stakes.Stake {
	return &stakes.Stake{
		Amount:          big.NewInt(amount),
		CreatedAt:       createdAt,
		FirstEpoch:      epoch,
		WithdrawnReward: new(big.Int),
	}
}

func TestInitialize(t *testing.T) {
	svc := newTestService(t, 100)

	assert.Error(t, svc.Initialize(200), "double initialize must fail")

	entry, closed, err := svc.Get(0)
	assert.NoError(t, err)
	assert.True(t, closed)
	assert.Equal(t, uint64(100), entry.ClosedAt)

	open, err := svc.OpenEpoch()
	assert.NoError(t, err)
	assert.Equal(t, wheel.EpochID(1), open)
}

func TestCloseEpochNoPower(t *testing.T) {
	svc := newTestService(t, 0)

	_, _, err := svc.CloseEpoch(big.NewInt(100), 10, new(big.Int))
	assert.ErrorIs(t, err, reverts.ErrNoActivePower)

	rpp, err := svc.RewardPerPower()
	assert.NoError(t, err)
	assert.True(t, rpp.Sign() == 0, "a refused distribution must not move the accumulator")
}

// Two stakes arrive mid-epoch; the whole reward lands in the partial bucket
// and splits by amount x time present.
func TestCloseEpochPartialOnly(t *testing.T) {
	svc := newTestService(t, 0)

	assert.NoError(t, svc.RecordArrival(big.NewInt(100), 0))
	assert.NoError(t, svc.RecordArrival(big.NewInt(100), 5))

	id, entry, err := svc.CloseEpoch(big.NewInt(90), 10, big.NewInt(200))
	assert.NoError(t, err)
	assert.Equal(t, wheel.EpochID(1), id)
	assert.Equal(t, big.NewInt(90), entry.RewardForPartialPower)

	// the accumulator only grows for full power, and there was none
	rpp, err := svc.RewardPerPower()
	assert.NoError(t, err)
	assert.True(t, rpp.Sign() == 0)

	// present the whole epoch: 100 x 10 of the realized 1500 power-time
	acc, err := svc.Accumulated(stakeRecord(100, 0, 1))
	assert.NoError(t, err)
	assert.Equal(t, big.NewInt(60), acc)

	// present half the epoch: 100 x 5
	acc, err = svc.Accumulated(stakeRecord(100, 5, 1))
	assert.NoError(t, err)
	assert.Equal(t, big.NewInt(30), acc)
}

// A second distribution with no pending stake flows entirely through the
// accumulator and pays proportionally to amount.
func TestCloseEpochFullPower(t *testing.T) {
	svc := newTestService(t, 0)

	assert.NoError(t, svc.RecordArrival(big.NewInt(100), 0))
	assert.NoError(t, svc.RecordArrival(big.NewInt(100), 5))
	_, _, err := svc.CloseEpoch(big.NewInt(90), 10, big.NewInt(200))
	assert.NoError(t, err)

	// epoch 2: both stakes are now full power
	_, entry, err := svc.CloseEpoch(big.NewInt(200), 20, big.NewInt(200))
	assert.NoError(t, err)
	assert.True(t, entry.RewardForPartialPower.Sign() == 0)
	assert.True(t, entry.PendingStaked.Sign() == 0)

	rpp, err := svc.RewardPerPower()
	assert.NoError(t, err)
	assert.Equal(t, wheel.Magnitude, rpp)

	acc, err := svc.Accumulated(stakeRecord(100, 0, 1))
	assert.NoError(t, err)
	assert.Equal(t, big.NewInt(160), acc)

	acc, err = svc.Accumulated(stakeRecord(100, 5, 1))
	assert.NoError(t, err)
	assert.Equal(t, big.NewInt(130), acc)
}

// Mixed epoch: full power takes its truncated share, the remainder stays in
// the partial bucket.
func TestCloseEpochMixedPowerRounding(t *testing.T) {
	svc := newTestService(t, 0)

	assert.NoError(t, svc.RecordArrival(big.NewInt(100), 0))
	_, _, err := svc.CloseEpoch(big.NewInt(100), 10, big.NewInt(100))
	assert.NoError(t, err)

	// 100 full power, 100 arriving at t=15 of a 10..20 epoch (50 partial power)
	assert.NoError(t, svc.RecordArrival(big.NewInt(100), 15))
	_, entry, err := svc.CloseEpoch(big.NewInt(99), 20, big.NewInt(200))
	assert.NoError(t, err)

	// 99 x 100 / 150 truncates to 66 for the full side, 33 stays partial
	assert.Equal(t, big.NewInt(33), entry.RewardForPartialPower)

	acc, err := svc.Accumulated(stakeRecord(100, 15, 2))
	assert.NoError(t, err)
	assert.Equal(t, big.NewInt(33), acc)
}

// An instantly closed epoch realizes no power-time for its pending stake.
func TestCloseEpochZeroSpan(t *testing.T) {
	svc := newTestService(t, 10)

	assert.NoError(t, svc.RecordArrival(big.NewInt(100), 10))
	_, _, err := svc.CloseEpoch(big.NewInt(50), 10, big.NewInt(100))
	assert.ErrorIs(t, err, reverts.ErrNoActivePower)
}

func TestArrivalReversal(t *testing.T) {
	svc := newTestService(t, 0)

	assert.NoError(t, svc.RecordArrival(big.NewInt(100), 3))
	assert.NoError(t, svc.RecordArrival(big.NewInt(50), 7))
	assert.NoError(t, svc.ReverseArrival(big.NewInt(50), 7))

	open, err := svc.OpenEpoch()
	assert.NoError(t, err)
	entry, closed, err := svc.Get(open)
	assert.NoError(t, err)
	assert.False(t, closed)
	assert.Equal(t, big.NewInt(100), entry.PendingStaked)
	assert.Equal(t, big.NewInt(300), entry.PowerXTimeDelta)

	// reversing more than arrived is refused
	assert.Error(t, svc.ReverseArrival(big.NewInt(200), 3))
}

func TestArrivalPredatesEpoch(t *testing.T) {
	svc := newTestService(t, 100)
	assert.Error(t, svc.RecordArrival(big.NewInt(1), 99))
}

func TestAccumulatedBeforeFirstDistribution(t *testing.T) {
	svc := newTestService(t, 0)

	assert.NoError(t, svc.RecordArrival(big.NewInt(100), 5))
	acc, err := svc.Accumulated(stakeRecord(100, 5, 1))
	assert.NoError(t, err)
	assert.True(t, acc.Sign() == 0, "no distribution has touched this stake yet")
}

// Walks every closed epoch of a mixed-arrival run and checks the bounds the
// accounting rests on: an epoch never realizes negative or more than its
// maximum power-time, and no stake carries more power-time into its first
// epoch than that epoch realized.
func TestClosedEpochBounds(t *testing.T) {
	svc := newTestService(t, 0)

	type fixture struct {
		amount    int64
		createdAt uint64
		epoch     wheel.EpochID
	}
	stakesIn := []fixture{{100, 0, 1}, {250, 4, 1}, {33, 9, 1}, {40, 12, 2}}

	assert.NoError(t, svc.RecordArrival(big.NewInt(100), 0))
	assert.NoError(t, svc.RecordArrival(big.NewInt(250), 4))
	assert.NoError(t, svc.RecordArrival(big.NewInt(33), 9))
	_, _, err := svc.CloseEpoch(big.NewInt(97), 10, big.NewInt(383))
	assert.NoError(t, err)

	assert.NoError(t, svc.RecordArrival(big.NewInt(40), 12))
	_, _, err = svc.CloseEpoch(big.NewInt(50), 20, big.NewInt(423))
	assert.NoError(t, err)

	// no pending stake at all in the third epoch
	_, _, err = svc.CloseEpoch(big.NewInt(5), 30, big.NewInt(423))
	assert.NoError(t, err)

	last, err := svc.LastClosed()
	assert.NoError(t, err)
	assert.Equal(t, wheel.EpochID(3), last)

	for id := wheel.EpochID(1); id <= last; id++ {
		entry, closed, err := svc.Get(id)
		assert.NoError(t, err)
		assert.True(t, closed)
		prev, _, err := svc.Get(id - 1)
		assert.NoError(t, err)

		maxPXT := entry.MaxPowerXTime(prev.ClosedAt)
		assert.True(t, entry.PowerXTimeDelta.Sign() >= 0,
			"epoch %d realized negative power-time", id)
		assert.True(t, entry.PowerXTimeDelta.Cmp(maxPXT) <= 0,
			"epoch %d delta %v above maximum %v", id, entry.PowerXTimeDelta, maxPXT)
		assert.True(t, entry.RealPowerXTime(prev.ClosedAt).Sign() >= 0)
	}

	for _, f := range stakesIn {
		first, _, err := svc.Get(f.epoch)
		assert.NoError(t, err)
		prev, _, err := svc.Get(f.epoch - 1)
		assert.NoError(t, err)

		present := new(big.Int).Mul(
			big.NewInt(f.amount),
			new(big.Int).SetUint64(first.ClosedAt-f.createdAt),
		)
		real := first.RealPowerXTime(prev.ClosedAt)
		assert.True(t, real.Cmp(present) >= 0,
			"stake power-time %v above epoch realized %v", present, real)
	}
}

// The sum of Accumulated over all stakes never exceeds the sum of rewards.
func TestConservation(t *testing.T) {
	svc := newTestService(t, 0)

	type fixture struct {
		amount    int64
		createdAt uint64
	}
	stakesIn := []fixture{{100, 0}, {250, 4}, {33, 9}}
	total := new(big.Int)
	for _, f := range stakesIn {
		assert.NoError(t, svc.RecordArrival(big.NewInt(f.amount), f.createdAt))
		total.Add(total, big.NewInt(f.amount))
	}

	distributed := new(big.Int)
	for i, reward := range []int64{97, 1000, 3} {
		_, _, err := svc.CloseEpoch(big.NewInt(reward), uint64(10*(i+1)), total)
		assert.NoError(t, err)
		distributed.Add(distributed, big.NewInt(reward))
	}

	claimed := new(big.Int)
	for _, f := range stakesIn {
		acc, err := svc.Accumulated(stakeRecord(f.amount, f.createdAt, 1))
		assert.NoError(t, err)
		assert.True(t, acc.Sign() >= 0)
		claimed.Add(claimed, acc)
	}

	assert.True(t, claimed.Cmp(distributed) <= 0, "claims %v exceed distributed %v", claimed, distributed)
	dust := new(big.Int).Sub(distributed, claimed)
	assert.True(t, dust.Cmp(big.NewInt(8)) <= 0, "rounding dust %v too large", dust)
}
