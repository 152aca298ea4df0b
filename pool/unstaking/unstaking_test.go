// Copyright (c) 2025 The Stakewheel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package unstaking

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

func TestInsertGetRemove(t *testing.T) {
	svc := newTestService()
	owner := wheel.BytesToAddress([]byte("alice"))

	assert.NoError(t, svc.Insert(3, owner, big.NewInt(100), 8640))

	req, err := svc.Get(3)
	assert.NoError(t, err)
	assert.Equal(t, owner, req.Owner)
	assert.Equal(t, big.NewInt(100), req.Amount)
	assert.Equal(t, uint64(8640), req.UnlockAt)

	assert.NoError(t, svc.Remove(3))
	_, err = svc.Get(3)
	assert.ErrorIs(t, err, reverts.ErrUnknownUnstake)
}

func TestUnknownRequest(t *testing.T) {
	svc := newTestService()

	_, err := svc.Get(9)
	assert.ErrorIs(t, err, reverts.ErrUnknownUnstake)
	assert.ErrorIs(t, svc.Remove(9), reverts.ErrUnknownUnstake)
}
