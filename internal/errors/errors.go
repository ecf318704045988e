package errors

import "errors"

// Domain errors returned by the parking services. Handlers map these to
// HTTP status codes; services never translate them.
var (
	// ErrValidation reports malformed or missing input, such as an empty
	// plate number or an unknown payment method.
	ErrValidation = errors.New("invalid input")

	// ErrAlreadyParked reports an entry request for a vehicle that still
	// has an open parking session.
	ErrAlreadyParked = errors.New("vehicle is already parked")

	// ErrNoSpaceAvailable reports that no free parking space exists at
	// entry time. The operation is not retried automatically.
	ErrNoSpaceAvailable = errors.New("no available parking spaces")

	// ErrNotFound reports a ticket, plate or open-transaction lookup miss.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInterval reports an exit time preceding the entry time.
	// The interval is never clamped.
	ErrInvalidInterval = errors.New("exit time precedes entry time")

	// ErrDuplicateTicket reports a ticket number collision that survived
	// the retry with a disambiguating suffix.
	ErrDuplicateTicket = errors.New("duplicate ticket number")

	// ErrConflict reports a lost conditional update: another request won
	// the race for the same space or vehicle. The whole operation is safe
	// to retry once.
	ErrConflict = errors.New("concurrent update conflict")

	// ErrSpaceOccupied reports an attempt to remove a space that currently
	// holds a vehicle.
	ErrSpaceOccupied = errors.New("parking space is occupied")
)
