// Copyright (c) 2025 The Stakewheel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/stakewheel/stakewheel/api/utils"
	"github.com/stakewheel/stakewheel/pool"
	"github.com/stakewheel/stakewheel/reverts"
	"github.com/stakewheel/stakewheel/wheel"
)

type poolAPI struct {
	pool *pool.Pool
}

func newPoolAPI(p *pool.Pool) *poolAPI {
	return &poolAPI{pool: p}
}

// Summary is the pool-wide view.
type Summary struct {
	TotalStaked     string        `json:"totalStaked"`
	RewardPerPower  string        `json:"rewardPerPower"`
	LockPeriod      uint64        `json:"lockPeriod"`
	LastClosedEpoch wheel.EpochID `json:"lastClosedEpoch"`
}

// StakeView is a stake record plus its outstanding reward.
type StakeView struct {
	ID              wheel.StakeID `json:"id"`
	Owner           wheel.Address `json:"owner"`
	Amount          string        `json:"amount"`
	CreatedAt       uint64        `json:"createdAt"`
	FirstEpoch      wheel.EpochID `json:"firstEpoch"`
	WithdrawnReward string        `json:"withdrawnReward"`
	PendingReward   string        `json:"pendingReward"`
}

// EpochView is an epoch record.
type EpochView struct {
	ID                     wheel.EpochID `json:"id"`
	Closed                 bool          `json:"closed"`
	ClosedAt               uint64        `json:"closedAt"`
	Reward                 string        `json:"reward"`
	RewardPerPowerSnapshot string        `json:"rewardPerPowerSnapshot"`
	RewardForPartialPower  string        `json:"rewardForPartialPower"`
	PowerXTimeDelta        string        `json:"powerXTimeDelta"`
	PendingStaked          string        `json:"pendingStaked"`
}

// UnstakeView is a pending unstake request.
type UnstakeView struct {
	ID       wheel.StakeID `json:"id"`
	Owner    wheel.Address `json:"owner"`
	Amount   string        `json:"amount"`
	UnlockAt uint64        `json:"unlockAt"`
}

func parseID(req *http.Request) (uint64, error) {
	id, err := strconv.ParseUint(mux.Vars(req)["id"], 10, 64)
	if err != nil {
		return 0, utils.BadRequest(errors.WithMessage(err, "id"))
	}
	return id, nil
}

// wrapLookup maps revert errors of lookups to 404s.
func wrapLookup(err error) error {
	if errors.Is(err, reverts.ErrUnknownStake) || errors.Is(err, reverts.ErrUnknownUnstake) {
		return utils.NotFound(err)
	}
	return err
}

func (a *poolAPI) handleGetSummary(w http.ResponseWriter, _ *http.Request) error {
	total, err := a.pool.TotalStaked()
	if err != nil {
		return err
	}
	rpp, err := a.pool.RewardPerPower()
	if err != nil {
		return err
	}
	lock, err := a.pool.LockPeriod()
	if err != nil {
		return err
	}
	last, err := a.pool.LastClosedEpoch()
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, &Summary{
		TotalStaked:     total.String(),
		RewardPerPower:  rpp.String(),
		LockPeriod:      lock,
		LastClosedEpoch: last,
	})
}

func (a *poolAPI) handleGetStake(w http.ResponseWriter, req *http.Request) error {
	id, err := parseID(req)
	if err != nil {
		return err
	}
	entry, err := a.pool.GetStake(wheel.StakeID(id))
	if err != nil {
		return wrapLookup(err)
	}
	pending, err := a.pool.RewardOf(wheel.StakeID(id))
	if err != nil {
		return wrapLookup(err)
	}
	return utils.WriteJSON(w, &StakeView{
		ID:              wheel.StakeID(id),
		Owner:           entry.Owner,
		Amount:          entry.Amount.String(),
		CreatedAt:       entry.CreatedAt,
		FirstEpoch:      entry.FirstEpoch,
		WithdrawnReward: entry.WithdrawnReward.String(),
		PendingReward:   pending.String(),
	})
}

func (a *poolAPI) handleGetEpoch(w http.ResponseWriter, req *http.Request) error {
	id, err := parseID(req)
	if err != nil {
		return err
	}
	entry, closed, err := a.pool.GetEpoch(wheel.EpochID(id))
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, &EpochView{
		ID:                     wheel.EpochID(id),
		Closed:                 closed,
		ClosedAt:               entry.ClosedAt,
		Reward:                 entry.Reward.String(),
		RewardPerPowerSnapshot: entry.RewardPerPowerSnapshot.String(),
		RewardForPartialPower:  entry.RewardForPartialPower.String(),
		PowerXTimeDelta:        entry.PowerXTimeDelta.String(),
		PendingStaked:          entry.PendingStaked.String(),
	})
}

func (a *poolAPI) handleGetUnstake(w http.ResponseWriter, req *http.Request) error {
	id, err := parseID(req)
	if err != nil {
		return err
	}
	entry, err := a.pool.GetUnstakeRequest(wheel.StakeID(id))
	if err != nil {
		return wrapLookup(err)
	}
	return utils.WriteJSON(w, &UnstakeView{
		ID:       wheel.StakeID(id),
		Owner:    entry.Owner,
		Amount:   entry.Amount.String(),
		UnlockAt: entry.UnlockAt,
	})
}

func (a *poolAPI) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()
	sub.Path("/pool").
		Methods(http.MethodGet).
		Name("GET /pool").
		HandlerFunc(utils.WrapHandlerFunc(a.handleGetSummary))
	sub.Path("/stakes/{id}").
		Methods(http.MethodGet).
		Name("GET /stakes/{id}").
		HandlerFunc(utils.WrapHandlerFunc(a.handleGetStake))
	sub.Path("/epochs/{id}").
		Methods(http.MethodGet).
		Name("GET /epochs/{id}").
		HandlerFunc(utils.WrapHandlerFunc(a.handleGetEpoch))
	sub.Path("/unstakes/{id}").
		Methods(http.MethodGet).
		Name("GET /unstakes/{id}").
		HandlerFunc(utils.WrapHandlerFunc(a.handleGetUnstake))
}
