// Copyright (c) 2025 The Stakewheel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package unstaking records principal that stopped earning and awaits return
// after the lock period.
package unstaking

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/stakewheel/stakewheel/reverts"
	"github.com/stakewheel/stakewheel/slots"
	"github.com/stakewheel/stakewheel/wheel"
)

var slotRequests = slots.NameToSlot("unstake-requests")

// Request is a principal awaiting return, keyed by the originating stake id.
type Request struct {
	Owner    wheel.Address
	Amount   *big.Int
	UnlockAt uint64
}

func (r *Request) IsEmpty() bool {
	return r == nil || r.Amount == nil || r.Amount.Sign() == 0
}

// Service manages pending unstake requests.
type Service struct {
	requests *slots.Mapping[wheel.StakeID, *Request]
}

func New(sctx *slots.Context) *Service {
	return &Service{
		requests: slots.NewMapping[wheel.StakeID, *Request](sctx, slotRequests),
	}
}

// Insert records a new request. Stake ids are never reused, so a request id
// cannot collide with a live one.
func (s *Service) Insert(id wheel.StakeID, owner wheel.Address, amount *big.Int, unlockAt uint64) error {
	entry := &Request{
		Owner:    owner,
		Amount:   amount,
		UnlockAt: unlockAt,
	}
	if err := s.requests.Set(id, entry); err != nil {
		return errors.Wrap(err, "failed to set unstake request")
	}
	return nil
}

// Get returns an existing request, or ErrUnknownUnstake.
func (s *Service) Get(id wheel.StakeID) (*Request, error) {
	entry, err := s.requests.Get(id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get unstake request")
	}
	if entry.IsEmpty() {
		return nil, reverts.ErrUnknownUnstake
	}
	return entry, nil
}

// Remove deletes the request once the principal has been paid out.
func (s *Service) Remove(id wheel.StakeID) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	s.requests.Delete(id)
	return nil
}
