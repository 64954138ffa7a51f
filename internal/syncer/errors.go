package syncer

import (
	"errors"

	"github.com/ahmetcoskunkizilkaya/donezo/internal/domain"
	"github.com/ahmetcoskunkizilkaya/donezo/internal/remote"
)

var (
	ErrNoUser    = errors.New("no signed-in user")
	ErrPending   = errors.New("record is still being created")
	ErrDiscarded = errors.New("record was deleted before the server confirmed it")
)

// Kind groups failures by how the caller should surface them.
type Kind int

const (
	// KindTransient covers network failures, timeouts and 5xx answers.
	KindTransient Kind = iota
	KindValidation
	KindUnauthorized
	KindNotFound
	KindConflict
	KindPending
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindPending:
		return "pending"
	default:
		return "transient"
	}
}

// Classify maps an error returned by the Synchronizer to its Kind.
func Classify(err error) Kind {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr), errors.Is(err, remote.ErrBadRequest):
		return KindValidation
	case errors.Is(err, ErrNoUser), errors.Is(err, remote.ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, remote.ErrNotFound):
		return KindNotFound
	case errors.Is(err, remote.ErrConflict):
		return KindConflict
	case errors.Is(err, ErrPending):
		return KindPending
	default:
		return KindTransient
	}
}
