package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/jask/skillmatch/internal/model"
)

// Sentinel errors, one per failure kind.
var (
	ErrValidation = errors.New("validation failure")
	ErrServer     = errors.New("server failure")
	ErrNetwork    = errors.New("network failure")
	ErrTimeout    = errors.New("timeout failure")
	ErrCancelled  = errors.New("cancelled failure")
)

// Kind classifies a failure.
type Kind int

const (
	KindNetwork Kind = iota
	KindValidation
	KindServer
	KindTimeout
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindServer:
		return "server"
	case KindTimeout:
		return "timeout"
	case KindCancelled:
		return "cancelled"
	}
	return "network"
}

func (k Kind) sentinel() error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindServer:
		return ErrServer
	case KindTimeout:
		return ErrTimeout
	case KindCancelled:
		return ErrCancelled
	}
	return ErrNetwork
}

// Op names the request that failed.
type Op string

const (
	OpSearch     Op = "search"
	OpLoadMore   Op = "load-more"
	OpDetail     Op = "detail"
	OpDashboard  Op = "dashboard"
	OpStatistics Op = "statistics"
	OpCatalog    Op = "catalog"
	OpCategories Op = "categories"
	OpCompetency Op = "competency"
)

// Failure is the typed error every executor failure resolves to.
type Failure struct {
	Kind    Kind
	Op      Op
	Mode    model.Mode
	Status  int
	Message string
	Err     error
}

func (f *Failure) Error() string {
	msg := f.Message
	if msg == "" && f.Err != nil {
		msg = f.Err.Error()
	}
	if f.Status != 0 {
		return fmt.Sprintf("%s %s (status %d): %s", f.Op, f.Kind, f.Status, msg)
	}
	return fmt.Sprintf("%s %s: %s", f.Op, f.Kind, msg)
}

func (f *Failure) Unwrap() error { return f.Err }

func (f *Failure) Is(target error) bool {
	return target == f.Kind.sentinel()
}

// Classify turns any error into a *Failure, tagging it with op and mode when
// they are not already set. Context errors map to timeout and cancelled.
func Classify(err error, op Op, mode model.Mode) *Failure {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		out := *f
		if out.Op == "" {
			out.Op = op
		}
		if out.Mode == "" {
			out.Mode = mode
		}
		return &out
	}
	kind := KindNetwork
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, ErrTimeout):
		kind = KindTimeout
	case errors.Is(err, context.Canceled), errors.Is(err, ErrCancelled):
		kind = KindCancelled
	case errors.Is(err, ErrValidation):
		kind = KindValidation
	case errors.Is(err, ErrServer):
		kind = KindServer
	}
	return &Failure{Kind: kind, Op: op, Mode: mode, Err: err}
}

// IsCancelled reports whether err is a benign cancellation.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}
