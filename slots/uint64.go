// Copyright (c) 2025 The Stakewheel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package slots

import (
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/stakewheel/stakewheel/wheel"
)

// Uint64 is a wrapper for storage and retrieval of a uint64 scalar,
// used for counters and timestamps.
type Uint64 struct {
	context *Context
	pos     wheel.Bytes32
}

func NewUint64(context *Context, slot wheel.Bytes32) *Uint64 {
	return &Uint64{context: context, pos: slot}
}

func (u *Uint64) Get() (value uint64, err error) {
	err = u.context.state.DecodeStorage(u.context.address, u.pos, func(raw []byte) error {
		if len(raw) == 0 {
			return nil
		}
		return rlp.DecodeBytes(raw, &value)
	})
	return
}

func (u *Uint64) Set(value uint64) error {
	return u.context.state.EncodeStorage(u.context.address, u.pos, func() ([]byte, error) {
		if value == 0 {
			return nil, nil
		}
		return rlp.EncodeToBytes(value)
	})
}
