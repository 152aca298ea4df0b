// Copyright (c) 2025 The Stakewheel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package reverts holds the caller-visible error taxonomy of the pool.
// A revert means the operation was rejected and left no state change behind;
// anything else is an internal fault.
package reverts

import (
	"errors"
)

type ErrRevert struct {
	message string
}

func New(message string) *ErrRevert {
	return &ErrRevert{
		message: message,
	}
}

func (e *ErrRevert) Error() string {
	return e.message
}

// Sentinel reverts. Matched with errors.Is.
var (
	// authorization
	ErrUnauthorized  = New("unauthorized")
	ErrNotStakeOwner = New("not stake owner")

	// invalid input
	ErrZeroAmount           = New("zero amount")
	ErrLockPeriodOutOfRange = New("lock period out of range")

	// state conflict
	ErrNoActivePower  = New("no active power")
	ErrUnknownStake   = New("unknown stake")
	ErrUnknownUnstake = New("unknown unstake request")
	ErrTooEarly       = New("too early")

	// token ledger failures, surfaced by ledger implementations
	ErrInsufficientFunds    = New("insufficient funds")
	ErrInsufficientApproval = New("insufficient approval")
)

func IsRevertErr(err any) bool {
	if err == nil {
		return false
	}
	e, ok := err.(error)
	if !ok {
		return false
	}
	var ve *ErrRevert
	return errors.As(e, &ve)
}
