// Copyright (c) 2025 The Stakewheel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"math/big"
	"os"
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/stakewheel/stakewheel/pool"
	"github.com/stakewheel/stakewheel/wheel"
)

// Scenario is a replayable timeline of pool operations.
type Scenario struct {
	Admin      string   `yaml:"admin"`
	LockPeriod *uint64  `yaml:"lockPeriod"`
	Actions    []Action `yaml:"actions"`
}

type Action struct {
	At     uint64 `yaml:"at"`
	Type   string `yaml:"type"`
	Owner  string `yaml:"owner"`
	Amount string `yaml:"amount"`
	Stake  uint64 `yaml:"stake"`
}

func loadScenario(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read scenario")
	}
	var s Scenario
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, errors.Wrap(err, "failed to parse scenario")
	}
	if s.Admin == "" {
		return nil, errors.New("scenario: admin is required")
	}
	// replay in timeline order, preserving file order for equal times
	sort.SliceStable(s.Actions, func(i, j int) bool {
		return s.Actions[i].At < s.Actions[j].At
	})
	return &s, nil
}

// Actors lists every distinct address the scenario touches, admin first.
func (s *Scenario) Actors() ([]wheel.Address, error) {
	admin, err := wheel.ParseAddress(s.Admin)
	if err != nil {
		return nil, errors.Wrap(err, "scenario: bad admin address")
	}
	actors := []wheel.Address{*admin}
	seen := map[wheel.Address]bool{*admin: true}
	for i := range s.Actions {
		if s.Actions[i].Owner == "" {
			continue
		}
		addr, err := s.Actions[i].owner()
		if err != nil {
			return nil, err
		}
		if !seen[addr] {
			seen[addr] = true
			actors = append(actors, addr)
		}
	}
	return actors, nil
}

func (a *Action) owner() (wheel.Address, error) {
	if a.Owner == "" {
		return wheel.Address{}, errors.Errorf("action %q at %d: owner is required", a.Type, a.At)
	}
	addr, err := wheel.ParseAddress(a.Owner)
	if err != nil {
		return wheel.Address{}, errors.Wrapf(err, "action %q at %d", a.Type, a.At)
	}
	return *addr, nil
}

func (a *Action) amount() (*big.Int, error) {
	v, ok := new(big.Int).SetString(a.Amount, 10)
	if !ok {
		return nil, errors.Errorf("action %q at %d: bad amount %q", a.Type, a.At, a.Amount)
	}
	return v, nil
}

// replay runs the scenario against the pool. The simulation's clock is purely
// the action timestamps.
func replay(s *Scenario, p *pool.Pool, admin wheel.Address) error {
	for i := range s.Actions {
		act := &s.Actions[i]
		switch act.Type {
		case "stake":
			owner, err := act.owner()
			if err != nil {
				return err
			}
			amount, err := act.amount()
			if err != nil {
				return err
			}
			if _, err := p.Stake(owner, amount, act.At); err != nil {
				return errors.Wrapf(err, "stake at %d", act.At)
			}

		case "reward":
			amount, err := act.amount()
			if err != nil {
				return err
			}
			if _, err := p.DistributeReward(admin, amount, act.At); err != nil {
				return errors.Wrapf(err, "reward at %d", act.At)
			}

		case "withdraw":
			owner, err := act.owner()
			if err != nil {
				return err
			}
			if _, err := p.WithdrawReward(owner, wheel.StakeID(act.Stake)); err != nil {
				return errors.Wrapf(err, "withdraw at %d", act.At)
			}

		case "request-unstake":
			owner, err := act.owner()
			if err != nil {
				return err
			}
			if err := p.RequestUnstake(owner, wheel.StakeID(act.Stake), act.At); err != nil {
				return errors.Wrapf(err, "request-unstake at %d", act.At)
			}

		case "unstake":
			owner, err := act.owner()
			if err != nil {
				return err
			}
			if _, err := p.Unstake(owner, wheel.StakeID(act.Stake), act.At); err != nil {
				return errors.Wrapf(err, "unstake at %d", act.At)
			}

		default:
			return errors.Errorf("unknown action type %q at %d", act.Type, act.At)
		}
	}
	return nil
}
