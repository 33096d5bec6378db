package endpoint

import (
	"errors"

	"github.com/kstaniek/iips-core/internal/metrics"
)

// Sentinel errors used for wrapping so callers can classify via errors.Is.
var (
	ErrBind    = errors.New("bind")
	ErrRead    = errors.New("read")
	ErrWrite   = errors.New("write")
	ErrContext = errors.New("context_cancelled")
)

func mapErrToMetric(err error) string {
	switch {
	case errors.Is(err, ErrBind):
		return metrics.ErrBind
	case errors.Is(err, ErrRead):
		return metrics.ErrReceive
	case errors.Is(err, ErrWrite):
		return metrics.ErrSend
	case errors.Is(err, ErrContext):
		return metrics.ErrShutdown
	default:
		return "other"
	}
}
