package httputil

import (
	"context"
	"errors"
	"net/http"

	"github.com/bissquit/resettlement-portal/internal/pkg/ctxlog"
)

// ErrorMapping ties a sentinel error to the response it produces.
// An empty Message means the sentinel's own text is sent.
type ErrorMapping struct {
	Error   error
	Status  int
	Message string
	Log     bool
}

func (m ErrorMapping) message() string {
	if m.Message != "" {
		return m.Message
	}
	return m.Error.Error()
}

// HandleError writes the response of the first mapping err matches. Unmapped
// errors are logged and answered with a generic 500 so internals never leak.
func HandleError(ctx context.Context, w http.ResponseWriter, err error, mappings []ErrorMapping) {
	logger := ctxlog.FromContext(ctx)
	for _, m := range mappings {
		if !errors.Is(err, m.Error) {
			continue
		}
		if m.Log || m.Status >= http.StatusInternalServerError {
			logger.Error("request failed", "status", m.Status, "error", err)
		}
		Error(w, m.Status, m.message())
		return
	}
	logger.Error("unhandled error", "error", err)
	Error(w, http.StatusInternalServerError, "internal error")
}
