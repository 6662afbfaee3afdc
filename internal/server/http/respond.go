package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/noteshub/internal/convert"
	"github.com/and161185/noteshub/internal/errs"
)

const maxBodyBytes = 1 << 20

// RestrictedMessage is the body text for restricted accounts.
const RestrictedMessage = "Your account is restricted. Please contact support."

func errorBody(msg string) convert.Error { return convert.Error{Error: msg} }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid JSON body", errs.ErrValidation)
	}
	return nil
}

func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.FromString(raw)
	if err != nil {
		return uuid.Nil, errs.ErrNotFound
	}
	return id, nil
}

// statusOf maps a service error to an HTTP status and a client-safe message.
// On note routes a denied note is indistinguishable from a missing one.
func statusOf(err error, noteRoute bool) (int, string) {
	switch {
	case errors.Is(err, errs.ErrAccountRestricted):
		return http.StatusForbidden, RestrictedMessage
	case errors.Is(err, errs.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid email or password"
	case errors.Is(err, errs.ErrTokenInvalid):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, errs.ErrForbidden) && noteRoute:
		return http.StatusNotFound, "not found"
	case errors.Is(err, errs.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, errs.ErrAlreadyExists):
		return http.StatusConflict, "already exists"
	case errors.Is(err, errs.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, errs.ErrRateLimited):
		return http.StatusTooManyRequests, "too many failed attempts, try again later"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, noteRoute bool) {
	status, msg := statusOf(err, noteRoute)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	} else {
		s.log.Debug("request rejected", zap.String("path", r.URL.Path), zap.Int("status", status), zap.Error(err))
	}
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="noteshub"`)
	}
	writeJSON(w, status, errorBody(msg))
}
