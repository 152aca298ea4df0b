// Copyright (c) 2025 The Stakewheel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package state provides keyed storage with checkpoint/revert semantics.
// Every ledger mutation goes through a State so that a failing operation can
// be rolled back as a whole.
package state

import (
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/stakewheel/stakewheel/stackedmap"
	"github.com/stakewheel/stakewheel/wheel"
)

type storageKey struct {
	addr wheel.Address
	key  wheel.Bytes32
}

// Source supplies the base layer of storage, below all checkpoints.
// Missing keys read as empty values.
type Source func(addr wheel.Address, key wheel.Bytes32) (rlp.RawValue, bool)

// State manages storage slots for a set of addresses.
type State struct {
	sm *stackedmap.StackedMap
}

// New creates a state on top of the given source.
func New(src Source) *State {
	state := &State{}
	state.sm = stackedmap.New(func(k any) (any, bool) {
		if src == nil {
			return nil, false
		}
		sk := k.(storageKey)
		return src(sk.addr, sk.key)
	})
	// the base layer never pops
	state.sm.Push()
	return state
}

// NewMem creates a state with an empty source, for in-memory use.
func NewMem() *State {
	return New(nil)
}

// NewCheckpoint makes a checkpoint of the current state.
// It returns a checkpoint to be passed to RevertTo.
func (s *State) NewCheckpoint() int {
	return s.sm.Push()
}

// RevertTo reverts the state to the given checkpoint.
func (s *State) RevertTo(checkpoint int) {
	s.sm.PopTo(checkpoint)
}

// Commit folds all mutations since the given checkpoint into the layer
// below it, so a long-lived state does not accumulate journal layers.
// The checkpoint is spent afterwards.
func (s *State) Commit(checkpoint int) {
	s.sm.CommitTo(checkpoint)
}

// GetRawStorage returns the raw rlp value stored at (addr, key).
// An untouched slot reads as an empty value.
func (s *State) GetRawStorage(addr wheel.Address, key wheel.Bytes32) rlp.RawValue {
	if v, ok := s.sm.Get(storageKey{addr, key}); ok {
		if v == nil {
			return nil
		}
		return v.(rlp.RawValue)
	}
	return nil
}

// SetRawStorage sets the raw rlp value at (addr, key).
// A nil raw deletes the slot.
func (s *State) SetRawStorage(addr wheel.Address, key wheel.Bytes32, raw rlp.RawValue) {
	if len(raw) == 0 {
		s.sm.Put(storageKey{addr, key}, nil)
		return
	}
	s.sm.Put(storageKey{addr, key}, raw)
}

// GetStorage returns a 32-byte value stored at (addr, key).
func (s *State) GetStorage(addr wheel.Address, key wheel.Bytes32) (wheel.Bytes32, error) {
	raw := s.GetRawStorage(addr, key)
	if len(raw) == 0 {
		return wheel.Bytes32{}, nil
	}
	var content []byte
	if err := rlp.DecodeBytes(raw, &content); err != nil {
		return wheel.Bytes32{}, err
	}
	return wheel.BytesToBytes32(content), nil
}

// SetStorage sets a 32-byte value at (addr, key).
// Storing the zero value deletes the slot.
func (s *State) SetStorage(addr wheel.Address, key, value wheel.Bytes32) {
	if value.IsZero() {
		s.SetRawStorage(addr, key, nil)
		return
	}
	v, _ := rlp.EncodeToBytes(trimLeadingZeros(value[:]))
	s.SetRawStorage(addr, key, v)
}

// EncodeStorage sets the encoded storage value for the given key.
// An empty encoded value deletes the slot.
func (s *State) EncodeStorage(addr wheel.Address, key wheel.Bytes32, enc func() ([]byte, error)) error {
	raw, err := enc()
	if err != nil {
		return err
	}
	s.SetRawStorage(addr, key, raw)
	return nil
}

// DecodeStorage decodes the stored value for the given key.
// The dec callback receives an empty slice for untouched slots.
func (s *State) DecodeStorage(addr wheel.Address, key wheel.Bytes32, dec func([]byte) error) error {
	return dec(s.GetRawStorage(addr, key))
}

func trimLeadingZeros(b []byte) []byte {
	for len(b) > 0 && b[0] == 0 {
		b = b[1:]
	}
	return b
}
