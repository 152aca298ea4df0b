// Copyright (c) 2025 The Stakewheel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package stakes owns the set of active stakes.
package stakes

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/stakewheel/stakewheel/reverts"
	"github.com/stakewheel/stakewheel/slots"
	"github.com/stakewheel/stakewheel/wheel"
)

var (
	slotStakes = slots.NameToSlot("stakes")
	slotLastID = slots.NameToSlot("stakes-last-id")
)

// Stake is one participant deposit. The only field that ever changes after
// creation is WithdrawnReward.
type Stake struct {
	Owner           wheel.Address
	Amount          *big.Int
	CreatedAt       uint64
	FirstEpoch      wheel.EpochID
	WithdrawnReward *big.Int
}

// IsEmpty returns whether the record reads as absent.
func (s *Stake) IsEmpty() bool {
	return s == nil || s.Amount == nil
}

// Service manages stake records. Ids come from a monotonic counter and are
// never reused once removed.
type Service struct {
	stakes *slots.Mapping[wheel.StakeID, *Stake]
	lastID *slots.Uint64
}

func New(sctx *slots.Context) *Service {
	return &Service{
		stakes: slots.NewMapping[wheel.StakeID, *Stake](sctx, slotStakes),
		lastID: slots.NewUint64(sctx, slotLastID),
	}
}

// Insert creates a fresh stake record and returns its id.
func (s *Service) Insert(owner wheel.Address, amount *big.Int, now uint64, epoch wheel.EpochID) (wheel.StakeID, error) {
	last, err := s.lastID.Get()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get last stake id")
	}
	id := wheel.StakeID(last + 1)
	if err := s.lastID.Set(uint64(id)); err != nil {
		return 0, errors.Wrap(err, "failed to set last stake id")
	}

	entry := &Stake{
		Owner:           owner,
		Amount:          amount,
		CreatedAt:       now,
		FirstEpoch:      epoch,
		WithdrawnReward: new(big.Int),
	}
	if err := s.stakes.Set(id, entry); err != nil {
		return 0, errors.Wrap(err, "failed to set stake")
	}
	return id, nil
}

// Get returns an existing stake, or ErrUnknownStake.
func (s *Service) Get(id wheel.StakeID) (*Stake, error) {
	entry, err := s.stakes.Get(id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get stake")
	}
	if entry.IsEmpty() {
		return nil, reverts.ErrUnknownStake
	}
	return entry, nil
}

// AddWithdrawn bumps the cumulative reward already paid out for the stake.
func (s *Service) AddWithdrawn(id wheel.StakeID, amount *big.Int) error {
	entry, err := s.Get(id)
	if err != nil {
		return err
	}
	entry.WithdrawnReward = new(big.Int).Add(entry.WithdrawnReward, amount)
	if err := s.stakes.Set(id, entry); err != nil {
		return errors.Wrap(err, "failed to set stake")
	}
	return nil
}

// Remove permanently deletes the record. The id is never reactivated.
func (s *Service) Remove(id wheel.StakeID) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	s.stakes.Delete(id)
	return nil
}

// LastID returns the most recently assigned stake id.
func (s *Service) LastID() (wheel.StakeID, error) {
	last, err := s.lastID.Get()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get last stake id")
	}
	return wheel.StakeID(last), nil
}
