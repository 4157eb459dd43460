// Copyright (c) 2025 The Lynx developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package lynxrules

import "errors"

// ErrorKind identifies a kind of error. It has full support for errors.Is
// and errors.As, so the caller can directly check against an error kind
// when determining the reason for an error.
type ErrorKind string

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}

// These constants identify the specific reasons a rule check can fail
// closed rather than simply returning false.
const (
	// ErrReadBlock indicates a block required to evaluate rule1 or the
	// prohibited-address set could not be read from the chain view.
	ErrReadBlock = ErrorKind("ErrReadBlock")

	// ErrMissingCoinbaseDestination indicates a block's coinbase
	// transaction has no recognizable payout destination.
	ErrMissingCoinbaseDestination = ErrorKind("ErrMissingCoinbaseDestination")
)

// Error identifies a lynxrules evaluation error. It has full support for
// errors.Is and errors.As, so the caller can ascertain the specific reason
// for the error by checking the underlying error kind.
type Error struct {
	Err         error
	Description string
}

// Error satisfies the error interface and prints human-readable errors.
func (e Error) Error() string {
	return e.Description
}

// Unwrap returns the underlying wrapped error.
func (e Error) Unwrap() error {
	return e.Err
}

// makeError creates an Error given a set of arguments.
func makeError(kind ErrorKind, desc string) Error {
	return Error{Err: kind, Description: desc}
}

// These are the exact error strings IsValidAddressForMining reports, kept
// as sentinels so callers can compare with errors.Is.
var (
	// ErrCoinbaseHistoryUnavailable means the prohibited-address set
	// (rule1's lookback window) or rule2's minimum balance could not be
	// computed.
	ErrCoinbaseHistoryUnavailable = errors.New("Unable to get the latest Coinbase addresses")

	// ErrRecentCoinbaseReward means the address appears in rule1's
	// lookback window and is temporarily ineligible.
	ErrRecentCoinbaseReward = errors.New("Address get reward not long ago")

	// ErrInsufficientBalance means the address balance is below rule2's
	// minimum balance for mining.
	ErrInsufficientBalance = errors.New("Not enough coins on address")
)
