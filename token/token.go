// Copyright (c) 2025 The Stakewheel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package token defines the asset-movement boundary of the pool and an
// in-memory reference ledger.
package token

import (
	"math/big"
	"sync"

	"github.com/stakewheel/stakewheel/reverts"
	"github.com/stakewheel/stakewheel/wheel"
)

// Ledger moves the staked/reward asset between participants and the pool's
// custody. Both calls may fail; the pool treats any failure as an abort of
// the whole operation.
type Ledger interface {
	// Pull moves amount from the given account into the pool's custody.
	Pull(from wheel.Address, amount *big.Int) error
	// Push moves amount out of the pool's custody to the given account.
	Push(to wheel.Address, amount *big.Int) error
}

// MemLedger is an in-memory Ledger with balances and per-account approvals
// toward the pool. Pulls require both balance and approval cover.
type MemLedger struct {
	mu        sync.Mutex
	pool      wheel.Address
	balances  map[wheel.Address]*big.Int
	approvals map[wheel.Address]*big.Int
}

func NewMemLedger(pool wheel.Address) *MemLedger {
	return &MemLedger{
		pool:      pool,
		balances:  make(map[wheel.Address]*big.Int),
		approvals: make(map[wheel.Address]*big.Int),
	}
}

func (l *MemLedger) balance(addr wheel.Address) *big.Int {
	if b, ok := l.balances[addr]; ok {
		return b
	}
	b := new(big.Int)
	l.balances[addr] = b
	return b
}

// Mint credits an account, for tests and simulations.
func (l *MemLedger) Mint(to wheel.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b := l.balance(to)
	b.Add(b, amount)
}

// Approve sets the allowance the pool may pull from the account.
func (l *MemLedger) Approve(from wheel.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.approvals[from] = new(big.Int).Set(amount)
}

// BalanceOf returns the account balance.
func (l *MemLedger) BalanceOf(addr wheel.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.balance(addr))
}

func (l *MemLedger) Pull(from wheel.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	approved := l.approvals[from]
	if approved == nil || approved.Cmp(amount) < 0 {
		return reverts.ErrInsufficientApproval
	}
	b := l.balance(from)
	if b.Cmp(amount) < 0 {
		return reverts.ErrInsufficientFunds
	}

	approved.Sub(approved, amount)
	b.Sub(b, amount)
	custody := l.balance(l.pool)
	custody.Add(custody, amount)
	return nil
}

func (l *MemLedger) Push(to wheel.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	custody := l.balance(l.pool)
	if custody.Cmp(amount) < 0 {
		return reverts.ErrInsufficientFunds
	}
	custody.Sub(custody, amount)
	b := l.balance(to)
	b.Add(b, amount)
	return nil
}
