// Copyright (c) 2025 The Stakewheel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package pool implements the reward accountant: proportional allocation of a
// reward stream over stakers by power x time, in O(1) per operation.
package pool

import (
	"math/big"
	"sync"

	"github.com/pkg/errors"

	"github.com/stakewheel/stakewheel/authority"
	"github.com/stakewheel/stakewheel/log"
	"github.com/stakewheel/stakewheel/metrics"
	"github.com/stakewheel/stakewheel/pool/distributions"
	"github.com/stakewheel/stakewheel/pool/stakes"
	"github.com/stakewheel/stakewheel/pool/unstaking"
	"github.com/stakewheel/stakewheel/reverts"
	"github.com/stakewheel/stakewheel/slots"
	"github.com/stakewheel/stakewheel/state"
	"github.com/stakewheel/stakewheel/token"
	"github.com/stakewheel/stakewheel/wheel"
)

var (
	logger = log.WithContext("pkg", "pool")

	slotTotalStaked = slots.NameToSlot("total-staked")
	slotLockPeriod  = slots.NameToSlot("lock-period")
	slotLastTime    = slots.NameToSlot("last-time")

	metricOps          = metrics.LazyLoadCounterVec("pool_operations_total", []string{"op", "status"})
	metricActiveStakes = metrics.LazyLoadGauge("pool_active_stakes")
)

// Pool is the reward accountant. Every public operation executes serially and
// atomically: a failing operation reverts all of its state mutations, makes no
// external transfer, and emits no events.
type Pool struct {
	mu    sync.Mutex
	state *state.State
	token token.Ledger
	gate  authority.Gate

	stakeService *stakes.Service
	distService  *distributions.Service
	queueService *unstaking.Service

	totalStaked *slots.Uint256
	lockPeriod  *slots.Uint64
	lastTime    *slots.Uint64

	sinks []Sink
}

// New creates a pool bound to the given component address within the state.
func New(addr wheel.Address, st *state.State, ledger token.Ledger, gate authority.Gate) *Pool {
	sctx := slots.NewContext(addr, st)
	return &Pool{
		state: st,
		token: ledger,
		gate:  gate,

		stakeService: stakes.New(sctx),
		distService:  distributions.New(sctx),
		queueService: unstaking.New(sctx),

		totalStaked: slots.NewUint256(sctx, slotTotalStaked),
		lockPeriod:  slots.NewUint64(sctx, slotLockPeriod),
		lastTime:    slots.NewUint64(sctx, slotLastTime),
	}
}

// Initialize writes the sentinel epoch and the initial lock period.
// Must be called exactly once, before any operation.
func (p *Pool) Initialize(now uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	cp := p.state.NewCheckpoint()
	err := func() error {
		if err := p.distService.Initialize(now); err != nil {
			return err
		}
		if err := p.lockPeriod.Set(wheel.InitialLockPeriod); err != nil {
			return err
		}
		return p.lastTime.Set(now)
	}()
	if err != nil {
		p.state.RevertTo(cp)
		return err
	}
	p.state.Commit(cp)
	logger.Info("pool initialized", "time", now, "lockPeriod", wheel.InitialLockPeriod)
	return nil
}

// Subscribe registers a sink for events of all subsequent operations.
func (p *Pool) Subscribe(sink Sink) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sinks = append(p.sinks, sink)
}

// run executes one operation atomically: checkpoint, mutate, then either
// commit and flush events, or revert with nothing emitted.
func (p *Pool) run(op string, fn func(emit func(Event)) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	cp := p.state.NewCheckpoint()
	var pending []Event
	emit := func(e Event) { pending = append(pending, e) }

	if err := fn(emit); err != nil {
		p.state.RevertTo(cp)
		status := "failed"
		if reverts.IsRevertErr(err) {
			status = "reverted"
		}
		metricOps().AddWithLabel(1, map[string]string{"op": op, "status": status})
		return err
	}

	p.state.Commit(cp)
	metricOps().AddWithLabel(1, map[string]string{"op": op, "status": "ok"})
	for _, e := range pending {
		for _, sink := range p.sinks {
			sink(e)
		}
	}
	return nil
}

// touchTime keeps logical time monotonic. Out-of-order times are clamped to
// the last admitted time; a sequencer never feeds them in practice.
func (p *Pool) touchTime(now uint64) (uint64, error) {
	last, err := p.lastTime.Get()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get last time")
	}
	if now < last {
		return last, nil
	}
	return now, p.lastTime.Set(now)
}

//
// Setters - state change
//

// Stake deposits amount for the caller's own benefit.
func (p *Pool) Stake(owner wheel.Address, amount *big.Int, now uint64) (wheel.StakeID, error) {
	return p.StakeFor(owner, owner, amount, now)
}

// StakeFor deposits amount pulled from payer, owned by owner. The stake joins
// the currently open epoch as partial power and earns full power from the
// next epoch on.
func (p *Pool) StakeFor(payer, owner wheel.Address, amount *big.Int, now uint64) (wheel.StakeID, error) {
	logger.Debug("staking", "payer", payer, "owner", owner, "amount", amount)

	var id wheel.StakeID
	err := p.run("stake", func(emit func(Event)) error {
		if amount == nil || amount.Sign() <= 0 {
			return reverts.ErrZeroAmount
		}
		now, err := p.touchTime(now)
		if err != nil {
			return err
		}

		open, err := p.distService.OpenEpoch()
		if err != nil {
			return err
		}
		if id, err = p.stakeService.Insert(owner, amount, now, open); err != nil {
			return err
		}
		if err := p.distService.RecordArrival(amount, now); err != nil {
			return err
		}
		if err := p.totalStaked.Add(amount); err != nil {
			return err
		}
		if err := p.token.Pull(payer, amount); err != nil {
			return err
		}
		emit(StakeCreated{Stake: id, Owner: owner, Amount: amount})
		return nil
	})
	if err != nil {
		logger.Info("stake failed", "owner", owner, "error", err)
		return 0, err
	}

	metricActiveStakes().Add(1)
	logger.Info("staked", "id", id, "owner", owner, "amount", amount)
	return id, nil
}

// DistributeReward closes the open epoch, splitting reward over the power
// present, and opens the next one. Privileged.
func (p *Pool) DistributeReward(caller wheel.Address, reward *big.Int, now uint64) (wheel.EpochID, error) {
	logger.Debug("distributing reward", "caller", caller, "reward", reward)

	var id wheel.EpochID
	err := p.run("distribute-reward", func(emit func(Event)) error {
		ok, err := p.gate.Authorized(caller, authority.OpDistributeReward)
		if err != nil {
			return err
		}
		if !ok {
			return reverts.ErrUnauthorized
		}
		if reward == nil || reward.Sign() <= 0 {
			return reverts.ErrZeroAmount
		}
		now, err := p.touchTime(now)
		if err != nil {
			return err
		}

		total, err := p.totalStaked.Get()
		if err != nil {
			return err
		}
		if id, _, err = p.distService.CloseEpoch(reward, now, total); err != nil {
			return err
		}
		// the pull happens only once the close has succeeded, and a failing
		// pull reverts the close
		if err := p.token.Pull(caller, reward); err != nil {
			return err
		}
		emit(RewardDistributed{Epoch: id, Reward: reward})
		return nil
	})
	if err != nil {
		logger.Info("distribute reward failed", "caller", caller, "error", err)
		return 0, err
	}

	logger.Info("distributed reward", "epoch", id, "reward", reward)
	return id, nil
}

// WithdrawReward pays out the stake's outstanding reward to its owner.
func (p *Pool) WithdrawReward(caller wheel.Address, id wheel.StakeID) (*big.Int, error) {
	logger.Debug("withdrawing reward", "caller", caller, "id", id)

	var amount *big.Int
	err := p.run("withdraw-reward", func(emit func(Event)) error {
		var err error
		if amount, err = p.withdrawReward(caller, id, emit); err != nil {
			return err
		}
		return p.token.Push(caller, amount)
	})
	if err != nil {
		logger.Info("withdraw reward failed", "id", id, "error", err)
		return nil, err
	}

	logger.Info("withdrew reward", "id", id, "amount", amount)
	return amount, nil
}

// WithdrawRewardBatch pays out rewards for every listed stake. The batch is
// atomic: one failing id reverts all payouts.
func (p *Pool) WithdrawRewardBatch(caller wheel.Address, ids []wheel.StakeID) (*big.Int, error) {
	logger.Debug("withdrawing reward batch", "caller", caller, "count", len(ids))

	total := new(big.Int)
	err := p.run("withdraw-reward-batch", func(emit func(Event)) error {
		for _, id := range ids {
			amount, err := p.withdrawReward(caller, id, emit)
			if err != nil {
				return err
			}
			total.Add(total, amount)
		}
		// every id checked out; settle with a single transfer
		return p.token.Push(caller, total)
	})
	if err != nil {
		logger.Info("withdraw reward batch failed", "error", err)
		return nil, err
	}

	logger.Info("withdrew reward batch", "count", len(ids), "total", total)
	return total, nil
}

// withdrawReward is the per-stake claim accounting, shared by the single and
// batch paths. It never touches the token ledger; the caller settles the
// transfer once every claim has been recorded, so a failing id can still
// revert the whole operation. Must run inside run().
func (p *Pool) withdrawReward(caller wheel.Address, id wheel.StakeID, emit func(Event)) (*big.Int, error) {
	entry, err := p.stakeService.Get(id)
	if err != nil {
		return nil, err
	}
	if entry.Owner != caller {
		return nil, reverts.ErrNotStakeOwner
	}

	amount, err := p.outstanding(entry)
	if err != nil {
		return nil, err
	}
	if err := p.stakeService.AddWithdrawn(id, amount); err != nil {
		return nil, err
	}
	if amount.Sign() > 0 {
		emit(RewardWithdrawn{Stake: id, Amount: amount})
	}
	return amount, nil
}

// RequestUnstake ends the stake's earning life: outstanding reward is paid
// out, the principal moves into the unstake queue, and the stake record is
// deleted. The principal unlocks after the lock period.
func (p *Pool) RequestUnstake(caller wheel.Address, id wheel.StakeID, now uint64) error {
	logger.Debug("requesting unstake", "caller", caller, "id", id)

	err := p.run("request-unstake", func(emit func(Event)) error {
		entry, err := p.stakeService.Get(id)
		if err != nil {
			return err
		}
		if entry.Owner != caller {
			return reverts.ErrNotStakeOwner
		}
		now, err := p.touchTime(now)
		if err != nil {
			return err
		}

		// reward first, so removing the principal never discards it
		reward, err := p.outstanding(entry)
		if err != nil {
			return err
		}
		if err := p.stakeService.AddWithdrawn(id, reward); err != nil {
			return err
		}

		if err := p.totalStaked.Sub(entry.Amount); err != nil {
			return err
		}
		open, err := p.distService.OpenEpoch()
		if err != nil {
			return err
		}
		if entry.FirstEpoch == open {
			// still a partial stake of the open epoch; undo its arrival
			if err := p.distService.ReverseArrival(entry.Amount, entry.CreatedAt); err != nil {
				return err
			}
		}
		if err := p.stakeService.Remove(id); err != nil {
			return err
		}

		lock, err := p.lockPeriod.Get()
		if err != nil {
			return err
		}
		unlockAt := now + lock
		if err := p.queueService.Insert(id, entry.Owner, entry.Amount, unlockAt); err != nil {
			return err
		}

		if err := p.token.Push(entry.Owner, reward); err != nil {
			return err
		}
		if reward.Sign() > 0 {
			emit(RewardWithdrawn{Stake: id, Amount: reward})
		}
		emit(UnstakeRequested{Stake: id, Owner: entry.Owner, Amount: entry.Amount, UnlockAt: unlockAt})
		return nil
	})
	if err != nil {
		logger.Info("request unstake failed", "id", id, "error", err)
		return err
	}

	metricActiveStakes().Add(-1)
	logger.Info("requested unstake", "id", id)
	return nil
}

// Unstake returns the principal of a matured unstake request.
func (p *Pool) Unstake(caller wheel.Address, id wheel.StakeID, now uint64) (*big.Int, error) {
	logger.Debug("unstaking", "caller", caller, "id", id)

	var amount *big.Int
	err := p.run("unstake", func(emit func(Event)) error {
		req, err := p.queueService.Get(id)
		if err != nil {
			return err
		}
		if req.Owner != caller {
			return reverts.ErrNotStakeOwner
		}
		now, err := p.touchTime(now)
		if err != nil {
			return err
		}
		if now < req.UnlockAt {
			return reverts.ErrTooEarly
		}

		if err := p.queueService.Remove(id); err != nil {
			return err
		}
		if err := p.token.Push(req.Owner, req.Amount); err != nil {
			return err
		}
		amount = req.Amount
		emit(UnstakeCompleted{Stake: id, Owner: req.Owner, Amount: req.Amount})
		return nil
	})
	if err != nil {
		logger.Info("unstake failed", "id", id, "error", err)
		return nil, err
	}

	logger.Info("unstaked", "id", id, "amount", amount)
	return amount, nil
}

// ChangeLockPeriod sets the unstake lock period. Privileged, capped by
// wheel.MaxLockPeriod so funds can never be frozen indefinitely.
func (p *Pool) ChangeLockPeriod(caller wheel.Address, period uint64) error {
	logger.Debug("changing lock period", "caller", caller, "period", period)

	err := p.run("change-lock-period", func(emit func(Event)) error {
		ok, err := p.gate.Authorized(caller, authority.OpChangeLockPeriod)
		if err != nil {
			return err
		}
		if !ok {
			return reverts.ErrUnauthorized
		}
		if period > wheel.MaxLockPeriod {
			return reverts.ErrLockPeriodOutOfRange
		}
		if err := p.lockPeriod.Set(period); err != nil {
			return err
		}
		emit(LockPeriodChanged{Period: period})
		return nil
	})
	if err != nil {
		logger.Info("change lock period failed", "error", err)
		return err
	}

	logger.Info("changed lock period", "period", period)
	return nil
}

//
// Getters - no state change
//

// RewardOf returns the stake's outstanding (unclaimed) reward. Pure view.
func (p *Pool) RewardOf(id wheel.StakeID) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, err := p.stakeService.Get(id)
	if err != nil {
		return nil, err
	}
	return p.outstanding(entry)
}

func (p *Pool) outstanding(entry *stakes.Stake) (*big.Int, error) {
	accumulated, err := p.distService.Accumulated(entry)
	if err != nil {
		return nil, err
	}
	return accumulated.Sub(accumulated, entry.WithdrawnReward), nil
}

// GetStake returns the stake record.
func (p *Pool) GetStake(id wheel.StakeID) (*stakes.Stake, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stakeService.Get(id)
}

// GetEpoch returns the epoch record and whether it has been closed.
func (p *Pool) GetEpoch(id wheel.EpochID) (*distributions.Epoch, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.distService.Get(id)
}

// GetUnstakeRequest returns the pending unstake request for the stake id.
func (p *Pool) GetUnstakeRequest(id wheel.StakeID) (*unstaking.Request, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queueService.Get(id)
}

// TotalStaked returns the sum of all active stake amounts.
func (p *Pool) TotalStaked() (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalStaked.Get()
}

// RewardPerPower returns the global accumulator, scaled by wheel.Magnitude.
func (p *Pool) RewardPerPower() (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.distService.RewardPerPower()
}

// LastClosedEpoch returns the id of the most recently closed epoch.
func (p *Pool) LastClosedEpoch() (wheel.EpochID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.distService.LastClosed()
}

// LockPeriod returns the current unstake lock period.
func (p *Pool) LockPeriod() (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lockPeriod.Get()
}
