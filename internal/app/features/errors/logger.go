// internal/app/features/errors/logger.go
package errors

import (
	"net/http"

	"github.com/dalemusser/soar/internal/app/system/authz"
	"go.uber.org/zap"
)

// ErrorLogger logs a failure with request context and then renders the
// matching friendly page (or JSON body for API handlers).
type ErrorLogger struct {
	log *zap.Logger
}

// NewErrorLogger returns an ErrorLogger writing to logger.
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorLogger{log: logger}
}

func (l *ErrorLogger) fields(r *http.Request, err error) []zap.Field {
	return []zap.Field{
		zap.Error(err),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("user_id", authz.UserID(r)),
	}
}

// LogServerError logs at error level and renders a 500 page with userMsg.
func (l *ErrorLogger) LogServerError(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg, backURL string) {
	l.log.Error(msg, l.fields(r, err)...)
	RenderServerError(w, r, userMsg, backURL)
}

// LogBadRequest logs at warn level and renders a 400 page with userMsg.
func (l *ErrorLogger) LogBadRequest(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg, backURL string) {
	l.log.Warn(msg, l.fields(r, err)...)
	RenderBadRequest(w, r, userMsg, backURL)
}

// JSONServerError logs at error level and writes {"error": userMsg} with 500.
func (l *ErrorLogger) JSONServerError(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg string) {
	l.log.Error(msg, l.fields(r, err)...)
	if userMsg == "" {
		userMsg = "A server error occurred."
	}
	WriteJSONError(w, http.StatusInternalServerError, userMsg)
}
