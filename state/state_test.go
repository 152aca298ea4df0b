// Copyright (c) 2025 The Stakewheel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"testing"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/assert"

	"github.com/stakewheel/stakewheel/wheel"
)

func TestStorageRoundTrip(t *testing.T) {
	st := NewMem()
	addr := wheel.BytesToAddress([]byte("pool"))
	key := wheel.BytesToBytes32([]byte("slot"))

	v, err := st.GetStorage(addr, key)
	assert.NoError(t, err)
	assert.True(t, v.IsZero())

	want := wheel.BytesToBytes32([]byte{1, 2, 3})
	st.SetStorage(addr, key, want)

	v, err = st.GetStorage(addr, key)
	assert.NoError(t, err)
	assert.Equal(t, want, v)

	// zero value deletes the slot
	st.SetStorage(addr, key, wheel.Bytes32{})
	assert.Empty(t, st.GetRawStorage(addr, key))
}

func TestCheckpointRevert(t *testing.T) {
	st := NewMem()
	addr := wheel.BytesToAddress([]byte("pool"))
	key := wheel.BytesToBytes32([]byte("slot"))

	st.SetStorage(addr, key, wheel.BytesToBytes32([]byte{1}))

	cp := st.NewCheckpoint()
	st.SetStorage(addr, key, wheel.BytesToBytes32([]byte{2}))
	other := wheel.BytesToBytes32([]byte("other"))
	st.SetStorage(addr, other, wheel.BytesToBytes32([]byte{9}))

	st.RevertTo(cp)

	v, err := st.GetStorage(addr, key)
	assert.NoError(t, err)
	assert.Equal(t, wheel.BytesToBytes32([]byte{1}), v)

	v, err = st.GetStorage(addr, other)
	assert.NoError(t, err)
	assert.True(t, v.IsZero())
}

func TestCheckpointCommit(t *testing.T) {
	st := NewMem()
	addr := wheel.BytesToAddress([]byte("pool"))
	key := wheel.BytesToBytes32([]byte("slot"))

	cp := st.NewCheckpoint()
	st.SetStorage(addr, key, wheel.BytesToBytes32([]byte{1}))
	st.Commit(cp)

	// the write sticks; the spent checkpoint reverts nothing
	st.RevertTo(cp)
	v, err := st.GetStorage(addr, key)
	assert.NoError(t, err)
	assert.Equal(t, wheel.BytesToBytes32([]byte{1}), v)

	// committed checkpoints leave no journal layers behind
	for i := 0; i < 100; i++ {
		cp := st.NewCheckpoint()
		st.SetStorage(addr, key, wheel.BytesToBytes32([]byte{byte(i)}))
		st.Commit(cp)
	}
	assert.Equal(t, 1, st.sm.Depth())

	v, err = st.GetStorage(addr, key)
	assert.NoError(t, err)
	assert.Equal(t, wheel.BytesToBytes32([]byte{99}), v)
}

func TestEncodeDecodeStorage(t *testing.T) {
	st := NewMem()
	addr := wheel.BytesToAddress([]byte("pool"))
	key := wheel.BytesToBytes32([]byte("slot"))

	type record struct {
		A uint64
		B []byte
	}

	assert.NoError(t, st.EncodeStorage(addr, key, func() ([]byte, error) {
		return rlp.EncodeToBytes(&record{A: 42, B: []byte("hello")})
	}))

	var got record
	assert.NoError(t, st.DecodeStorage(addr, key, func(raw []byte) error {
		if len(raw) == 0 {
			return nil
		}
		return rlp.DecodeBytes(raw, &got)
	}))
	assert.Equal(t, uint64(42), got.A)
	assert.Equal(t, []byte("hello"), got.B)
}

func TestSourceFallThrough(t *testing.T) {
	addr := wheel.BytesToAddress([]byte("pool"))
	key := wheel.BytesToBytes32([]byte("slot"))
	raw, _ := rlp.EncodeToBytes([]byte{7})

	st := New(func(a wheel.Address, k wheel.Bytes32) (rlp.RawValue, bool) {
		if a == addr && k == key {
			return raw, true
		}
		return nil, false
	})

	v, err := st.GetStorage(addr, key)
	assert.NoError(t, err)
	assert.Equal(t, wheel.BytesToBytes32([]byte{7}), v)

	// overlay wins over source
	st.SetStorage(addr, key, wheel.BytesToBytes32([]byte{8}))
	v, err = st.GetStorage(addr, key)
	assert.NoError(t, err)
	assert.Equal(t, wheel.BytesToBytes32([]byte{8}), v)
}
