package model

import (
	"errors"
	"fmt"
)

// Kind classifies engine errors so callers can branch on the failure
// without parsing messages.
type Kind string

const (
	KindNotFound             Kind = "not_found"
	KindInvalidState         Kind = "invalid_state"
	KindSongNotOpen          Kind = "song_not_open"
	KindNotReady             Kind = "not_ready"
	KindSongNotPlayed        Kind = "song_not_played"
	KindCapacityExceeded     Kind = "capacity_exceeded"
	KindTooManyOpenSongs     Kind = "too_many_open_songs"
	KindDuplicateApplication Kind = "duplicate_application"
	KindGuestNotCheckedIn    Kind = "guest_not_checked_in"
	KindOutOfBucket          Kind = "out_of_bucket"
	KindInvalidStars         Kind = "invalid_stars"
	KindInvalidInput         Kind = "invalid_input"
)

// Error is a caller-recoverable validation or state error.  Two errors
// match under errors.Is when their kinds are equal, so the sentinels
// below can be compared against errors carrying a more specific message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrNotFound             = &Error{KindNotFound, "not found"}
	ErrInvalidState         = &Error{KindInvalidState, "invalid state"}
	ErrSongNotOpen          = &Error{KindSongNotOpen, "song is not open for candidates"}
	ErrNotReady             = &Error{KindNotReady, "song is not ready"}
	ErrSongNotPlayed        = &Error{KindSongNotPlayed, "song has not been played"}
	ErrCapacityExceeded     = &Error{KindCapacityExceeded, "no slots left for this instrument"}
	ErrTooManyOpenSongs     = &Error{KindTooManyOpenSongs, "too many open songs"}
	ErrDuplicateApplication = &Error{KindDuplicateApplication, "already applied for this instrument"}
	ErrGuestNotCheckedIn    = &Error{KindGuestNotCheckedIn, "guest has not checked in"}
	ErrOutOfBucket          = &Error{KindOutOfBucket, "song is not in the requested bucket"}
	ErrInvalidStars         = &Error{KindInvalidStars, "stars must be between 1 and 5"}
	ErrInvalidInput         = &Error{KindInvalidInput, "invalid input"}
)

// Errorf returns an error of the given kind with a formatted message.
func Errorf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of err, or "" when err is not an engine error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// ErrSlugTaken is returned by stores when a jam slug collides.
var ErrSlugTaken = errors.New("jam slug already taken")
