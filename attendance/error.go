package attendance

import (
	"errors"
	"fmt"
)

// Kind is the category of a failed command. Only the kind decides the reply.
type Kind int

const (
	KindUnknown Kind = iota
	KindMemberNotFound
	KindRecordOpen
	KindRecordRead
	KindCredentials
	KindSerial
	KindInsert
)

func (k Kind) String() string {
	switch k {
	case KindMemberNotFound:
		return "member_not_found"
	case KindRecordOpen:
		return "record_open"
	case KindRecordRead:
		return "record_read"
	case KindCredentials:
		return "credentials"
	case KindSerial:
		return "serial"
	case KindInsert:
		return "insert"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(k Kind, err error) *Error {
	return &Error{Kind: k, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Message is the reply text for a failed command by userKey.
func Message(err error, userKey string) string {
	switch KindOf(err) {
	case KindMemberNotFound:
		return fmt.Sprintf("No data was found for %s.", userKey)
	case KindRecordOpen:
		return "Failed to open the member record store."
	case KindRecordRead:
		return "Failed to read member records."
	case KindCredentials:
		return "Failed to validate credentials."
	case KindSerial:
		return "Failed to get serial number."
	case KindInsert:
		return "Failed to insert entry."
	default:
		return "Something went wrong."
	}
}

// Confirmation is the reply text for a recorded entry.
func Confirmation(r Receipt) string {
	seat := r.Entry.Seat
	if seat == "" {
		seat = "-"
	}

	return fmt.Sprintf("Recorded #%d for %s (%s) on %s: seat %s, %s-%s.",
		r.Entry.Serial, r.Entry.Name, r.Entry.ExternalID, r.DateKey, seat, r.Entry.TimeIn, r.Entry.TimeOut)
}
