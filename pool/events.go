// Copyright (c) 2025 The Stakewheel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"math/big"

	"github.com/stakewheel/stakewheel/wheel"
)

// Event is a notification produced by a successful operation, emitted exactly
// once, after all state mutation. Aborted operations emit nothing.
type Event interface {
	Name() string
}

// Sink receives events. Sinks run synchronously on the operation's
// goroutine, after commit.
type Sink func(Event)

type StakeCreated struct {
	Stake  wheel.StakeID
	Owner  wheel.Address
	Amount *big.Int
}

func (StakeCreated) Name() string { return "stake-created" }

type RewardDistributed struct {
	Epoch  wheel.EpochID
	Reward *big.Int
}

func (RewardDistributed) Name() string { return "reward-distributed" }

type RewardWithdrawn struct {
	Stake  wheel.StakeID
	Amount *big.Int
}

func (RewardWithdrawn) Name() string { return "reward-withdrawn" }

type UnstakeRequested struct {
	Stake    wheel.StakeID
	Owner    wheel.Address
	Amount   *big.Int
	UnlockAt uint64
}

func (UnstakeRequested) Name() string { return "unstake-requested" }

type UnstakeCompleted struct {
	Stake  wheel.StakeID
	Owner  wheel.Address
	Amount *big.Int
}

func (UnstakeCompleted) Name() string { return "unstake-completed" }

type LockPeriodChanged struct {
	Period uint64
}

func (LockPeriodChanged) Name() string { return "lock-period-changed" }
