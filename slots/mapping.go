// Copyright (c) 2025 The Stakewheel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package slots

import (
	"reflect"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/stakewheel/stakewheel/wheel"
)

type Key interface {
	Bytes() []byte
}

// Mapping is a key/value storage abstraction similar to a mapping in contract
// storage. Values are rlp encoded; each entry lives at a position derived from
// the key and the mapping's base position.
type Mapping[K Key, V any] struct {
	context *Context
	basePos wheel.Bytes32
}

func NewMapping[K Key, V any](context *Context, pos wheel.Bytes32) *Mapping[K, V] {
	return &Mapping[K, V]{context: context, basePos: pos}
}

func (m *Mapping[K, V]) position(key K) wheel.Bytes32 {
	return wheel.Blake2b(key.Bytes(), m.basePos.Bytes())
}

// Get returns the stored value, or the zero value for absent entries.
// For pointer-typed V the zero value is a freshly allocated empty record.
func (m *Mapping[K, V]) Get(key K) (value V, err error) {
	err = m.context.state.DecodeStorage(m.context.address, m.position(key), func(raw []byte) error {
		if reflect.ValueOf(&value).Elem().Kind() == reflect.Ptr {
			value = reflect.New(reflect.TypeOf(value).Elem()).Interface().(V)
		}
		if len(raw) == 0 {
			return nil
		}
		return rlp.DecodeBytes(raw, &value)
	})
	return
}

func (m *Mapping[K, V]) Set(key K, value V) error {
	return m.context.state.EncodeStorage(m.context.address, m.position(key), func() ([]byte, error) {
		return rlp.EncodeToBytes(value)
	})
}

// Delete removes the entry. Subsequent Gets read the zero value.
func (m *Mapping[K, V]) Delete(key K) {
	m.context.state.SetRawStorage(m.context.address, m.position(key), nil)
}

// Has reports whether an entry exists at the key.
func (m *Mapping[K, V]) Has(key K) bool {
	return len(m.context.state.GetRawStorage(m.context.address, m.position(key))) > 0
}
