// Copyright (c) 2025 The Stakewheel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stakes

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stakewheel/stakewheel/reverts"
	"github.com/stakewheel/stakewheel/slots"
	"github.com/stakewheel/stakewheel/state"
	"github.com/stakewheel/stakewheel/wheel"
)

func newTestService() *Service {
	addr := wheel.BytesToAddress([]byte("pool"))
	return New(slots.NewContext(addr, state.NewMem()))
}

func TestInsertGet(t *testing.T) {
	svc := newTestService()
	owner := wheel.BytesToAddress([]byte("alice"))

	id, err := svc.Insert(owner, big.NewInt(100), 7, 1)
	assert.NoError(t, err)
	assert.Equal(t, wheel.StakeID(1), id)

	entry, err := svc.Get(id)
	assert.NoError(t, err)
	assert.Equal(t, owner, entry.Owner)
	assert.Equal(t, big.NewInt(100), entry.Amount)
	assert.Equal(t, uint64(7), entry.CreatedAt)
	assert.Equal(t, wheel.EpochID(1), entry.FirstEpoch)
	assert.True(t, entry.WithdrawnReward.Sign() == 0)
}

func TestIDsMonotonic(t *testing.T) {
	svc := newTestService()
	owner := wheel.BytesToAddress([]byte("alice"))

	id1, err := svc.Insert(owner, big.NewInt(1), 0, 1)
	assert.NoError(t, err)
	id2, err := svc.Insert(owner, big.NewInt(2), 0, 1)
	assert.NoError(t, err)
	assert.Equal(t, id1+1, id2)

	// removal never frees an id
	assert.NoError(t, svc.Remove(id2))
	id3, err := svc.Insert(owner, big.NewInt(3), 0, 1)
	assert.NoError(t, err)
	assert.Equal(t, id2+1, id3)

	last, err := svc.LastID()
	assert.NoError(t, err)
	assert.Equal(t, id3, last)
}

func TestUnknownStake(t *testing.T) {
	svc := newTestService()

	_, err := svc.Get(42)
	assert.ErrorIs(t, err, reverts.ErrUnknownStake)

	assert.ErrorIs(t, svc.Remove(42), reverts.ErrUnknownStake)
	assert.ErrorIs(t, svc.AddWithdrawn(42, big.NewInt(1)), reverts.ErrUnknownStake)
}

func TestAddWithdrawn(t *testing.T) {
	svc := newTestService()
	owner := wheel.BytesToAddress([]byte("alice"))

	id, err := svc.Insert(owner, big.NewInt(100), 0, 1)
	assert.NoError(t, err)

	assert.NoError(t, svc.AddWithdrawn(id, big.NewInt(30)))
	assert.NoError(t, svc.AddWithdrawn(id, big.NewInt(12)))

	entry, err := svc.Get(id)
	assert.NoError(t, err)
	assert.Equal(t, big.NewInt(42), entry.WithdrawnReward)
	// the rest of the record is untouched
	assert.Equal(t, big.NewInt(100), entry.Amount)
}

func TestRemove(t *testing.T) {
	svc := newTestService()
	owner := wheel.BytesToAddress([]byte("alice"))

	id, err := svc.Insert(owner, big.NewInt(100), 0, 1)
	assert.NoError(t, err)
	assert.NoError(t, svc.Remove(id))

	_, err = svc.Get(id)
	assert.ErrorIs(t, err, reverts.ErrUnknownStake)
}
