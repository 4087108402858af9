package domain

import "errors"

var (
	// ErrWindowNotOpen is returned when a conversion action is attempted
	// while the window session is not in the open state.
	ErrWindowNotOpen = errors.New("teller window is not open")

	// ErrInvalidConversion is returned when a submission carries a
	// selection the calculator rejects.
	ErrInvalidConversion = errors.New("conversion input is invalid")

	// ErrUnknownOperationKind is returned for operation kinds other than
	// buy or sell.
	ErrUnknownOperationKind = errors.New("unknown operation kind")
)
