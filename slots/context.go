// Copyright (c) 2025 The Stakewheel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package slots binds ledger components to named storage slots, in the manner
// of contract storage: scalar slots, and mappings with hashed positions.
package slots

import (
	"github.com/stakewheel/stakewheel/state"
	"github.com/stakewheel/stakewheel/wheel"
)

// Context scopes slot access to one component address within a state.
type Context struct {
	address wheel.Address
	state   *state.State
}

func NewContext(address wheel.Address, state *state.State) *Context {
	return &Context{
		address: address,
		state:   state,
	}
}

func (c *Context) State() *state.State {
	return c.state
}

func (c *Context) Address() wheel.Address {
	return c.address
}

// NameToSlot derives a scalar slot position from a human-readable name.
func NameToSlot(name string) wheel.Bytes32 {
	return wheel.BytesToBytes32([]byte(name))
}
