// Copyright (c) 2025 The Stakewheel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package slots

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/stakewheel/stakewheel/wheel"
)

// Uint256 is a wrapper for storage and retrieval of a 256-bit unsigned scalar.
// Values that do not fit 256 bits are rejected, never truncated.
type Uint256 struct {
	context *Context
	pos     wheel.Bytes32
}

func NewUint256(context *Context, slot wheel.Bytes32) *Uint256 {
	return &Uint256{context: context, pos: slot}
}

func (u *Uint256) Get() (*big.Int, error) {
	storage, err := u.context.state.GetStorage(u.context.address, u.pos)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(storage.Bytes()), nil
}

func (u *Uint256) Set(value *big.Int) error {
	if _, overflow := uint256.FromBig(value); overflow || value.Sign() < 0 {
		return errors.Errorf("value out of uint256 range at slot %v", u.pos)
	}
	u.context.state.SetStorage(u.context.address, u.pos, wheel.BytesToBytes32(value.Bytes()))
	return nil
}

func (u *Uint256) Add(value *big.Int) error {
	stored, err := u.Get()
	if err != nil {
		return err
	}
	return u.Set(stored.Add(stored, value))
}

func (u *Uint256) Sub(value *big.Int) error {
	stored, err := u.Get()
	if err != nil {
		return err
	}
	stored.Sub(stored, value)
	if stored.Sign() < 0 {
		return errors.Errorf("uint256 underflow at slot %v", u.pos)
	}
	return u.Set(stored)
}
