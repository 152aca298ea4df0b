// Copyright (c) 2025 The Stakewheel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package wheel

import (
	"encoding/binary"
	"strconv"
)

// StakeID identifies a stake. Ids are assigned from a monotonic counter and
// never reused once the stake is removed.
type StakeID uint64

// Bytes returns the big-endian form, used as a storage mapping key.
func (id StakeID) Bytes() []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(id))
	return b[:]
}

func (id StakeID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// EpochID indexes a reward distribution. Id 0 is the sentinel epoch carrying
// only the pool creation timestamp.
type EpochID uint64

// Bytes returns the big-endian form, used as a storage mapping key.
func (id EpochID) Bytes() []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(id))
	return b[:]
}

func (id EpochID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}
