// Copyright (c) 2025 The Stakewheel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package eventdb

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stakewheel/stakewheel/pool"
	"github.com/stakewheel/stakewheel/wheel"
)

func TestWriteFilter(t *testing.T) {
	db, err := NewMem()
	assert.NoError(t, err)
	defer db.Close()

	alice := wheel.BytesToAddress([]byte("alice"))
	bob := wheel.BytesToAddress([]byte("bob"))

	assert.NoError(t, db.Write(&Record{Name: "stake-created", Stake: 1, Owner: alice, Amount: big.NewInt(100), EmittedAt: 7}))
	assert.NoError(t, db.Write(&Record{Name: "stake-created", Stake: 2, Owner: bob, Amount: big.NewInt(50), EmittedAt: 8}))
	assert.NoError(t, db.Write(&Record{Name: "reward-distributed", Epoch: 1, Amount: big.NewInt(40), EmittedAt: 9}))

	all, err := db.Filter(context.Background(), &Filter{})
	assert.NoError(t, err)
	assert.Len(t, all, 3)
	// seq is assigned in insertion order
	assert.True(t, all[0].Seq < all[1].Seq && all[1].Seq < all[2].Seq)
	assert.Equal(t, wheel.StakeID(1), all[0].Stake)
	assert.Equal(t, big.NewInt(100), all[0].Amount)
	assert.Equal(t, uint64(7), all[0].EmittedAt)

	byName, err := db.Filter(context.Background(), &Filter{Name: "reward-distributed"})
	assert.NoError(t, err)
	assert.Len(t, byName, 1)
	assert.Equal(t, wheel.EpochID(1), byName[0].Epoch)

	byOwner, err := db.Filter(context.Background(), &Filter{Owner: &bob})
	assert.NoError(t, err)
	assert.Len(t, byOwner, 1)
	assert.Equal(t, wheel.StakeID(2), byOwner[0].Stake)

	limited, err := db.Filter(context.Background(), &Filter{FromSeq: all[1].Seq, Limit: 1})
	assert.NoError(t, err)
	assert.Len(t, limited, 1)
	assert.Equal(t, all[1].Seq, limited[0].Seq)
}

func TestSinkConvertsEvents(t *testing.T) {
	db, err := NewMem()
	assert.NoError(t, err)
	defer db.Close()

	alice := wheel.BytesToAddress([]byte("alice"))
	sink := db.Sink(func() uint64 { return 42 }, nil)

	sink(pool.StakeCreated{Stake: 1, Owner: alice, Amount: big.NewInt(100)})
	sink(pool.RewardDistributed{Epoch: 1, Reward: big.NewInt(40)})
	sink(pool.RewardWithdrawn{Stake: 1, Amount: big.NewInt(40)})
	sink(pool.UnstakeRequested{Stake: 1, Owner: alice, Amount: big.NewInt(100), UnlockAt: 8640})
	sink(pool.UnstakeCompleted{Stake: 1, Owner: alice, Amount: big.NewInt(100)})
	sink(pool.LockPeriodChanged{Period: 100})

	all, err := db.Filter(context.Background(), &Filter{})
	assert.NoError(t, err)
	assert.Len(t, all, 6)

	names := make([]string, 0, len(all))
	for _, r := range all {
		names = append(names, r.Name)
		assert.Equal(t, uint64(42), r.EmittedAt)
	}
	assert.Equal(t, []string{
		"stake-created",
		"reward-distributed",
		"reward-withdrawn",
		"unstake-requested",
		"unstake-completed",
		"lock-period-changed",
	}, names)

	assert.Equal(t, uint64(8640), all[3].UnlockAt)
	assert.Equal(t, uint64(100), all[5].Period)
}
