// Copyright (c) 2025 The Stakewheel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package authority gates privileged pool operations.
package authority

import (
	"github.com/pkg/errors"

	"github.com/stakewheel/stakewheel/slots"
	"github.com/stakewheel/stakewheel/wheel"
)

// Operation names used with the gate.
const (
	OpDistributeReward = "distribute-reward"
	OpChangeLockPeriod = "change-lock-period"
)

// Gate authorizes privileged operations.
type Gate interface {
	Authorized(caller wheel.Address, operation string) (bool, error)
}

var slotGrants = slots.NameToSlot("authority-grants")

type grantKey struct {
	operation string
	caller    wheel.Address
}

func (k grantKey) Bytes() []byte {
	return append([]byte(k.operation), k.caller.Bytes()...)
}

// Allowlist is a Gate backed by per-(operation, caller) grants in state.
type Allowlist struct {
	grants *slots.Mapping[grantKey, bool]
}

func NewAllowlist(sctx *slots.Context) *Allowlist {
	return &Allowlist{
		grants: slots.NewMapping[grantKey, bool](sctx, slotGrants),
	}
}

// Grant permits the caller to perform the operation.
func (a *Allowlist) Grant(caller wheel.Address, operation string) error {
	if err := a.grants.Set(grantKey{operation, caller}, true); err != nil {
		return errors.Wrap(err, "failed to set grant")
	}
	return nil
}

// Revoke removes a previously given grant.
func (a *Allowlist) Revoke(caller wheel.Address, operation string) {
	a.grants.Delete(grantKey{operation, caller})
}

func (a *Allowlist) Authorized(caller wheel.Address, operation string) (bool, error) {
	granted, err := a.grants.Get(grantKey{operation, caller})
	if err != nil {
		return false, errors.Wrap(err, "failed to get grant")
	}
	return granted, nil
}
