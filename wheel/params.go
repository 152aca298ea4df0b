// Copyright (c) 2025 The Stakewheel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package wheel

import "math/big"

// Constants of the pool protocol.
const (
	// InitialLockPeriod is the unstake lock applied until governance changes it.
	InitialLockPeriod uint64 = 8640 // 1 day at 10s ticks

	// MaxLockPeriod caps ChangeLockPeriod so funds can never be frozen indefinitely.
	MaxLockPeriod uint64 = 8640 * 30 // 30 days
)

// Magnitude is the fixed-point scale applied to the cumulative reward-per-power
// accumulator. It keeps precision under integer division; the accumulator is
// persisted in a 256-bit slot, leaving 128 bits of headroom above the scale.
var Magnitude = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
