package wrapper

import "errors"

var (
	// ErrPermissionDenied is returned when the caller is not an authority of the account.
	ErrPermissionDenied = errors.New("PERMISSION DENIED: NO AUTHORITY")
	// ErrNotOwner is returned when an owner-only operation is called by someone else.
	ErrNotOwner = errors.New("PERMISSION DENIED: NOT OWNER")
	// ErrInsufficientFunds is returned when a native withdrawal exceeds the recorded deposits.
	ErrInsufficientFunds = errors.New("INSUFFICIENT FUNDS")
	// ErrInsufficientTokenBalance is returned when a token withdrawal exceeds the recorded deposits.
	ErrInsufficientTokenBalance = errors.New("INSUFFICIENT TOKEN BALANCE")
	// ErrExternalTransferFailed wraps a rejection from the registry or a token contract.
	ErrExternalTransferFailed = errors.New("EXTERNAL TRANSFER FAILED")
	// ErrInvalidAmount rejects amounts that are not positive, carry more than
	// 18 fractional digits or more than 60 whole digits.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInvalidAddress rejects the zero address where an identity is required.
	ErrInvalidAddress = errors.New("address must not be zero")
)
