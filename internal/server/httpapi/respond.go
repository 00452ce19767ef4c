package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/ojtauth/internal/api"
	"github.com/dmitrijs2005/ojtauth/internal/common"
	"github.com/dmitrijs2005/ojtauth/internal/server/archive"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, api.ErrorResponse{Message: message, Code: code})
}

// decode reads a JSON body into dst and answers 400 itself on failure.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, api.CodeBadRequest, "invalid request body")
		return false
	}
	return true
}

// errorStatus maps a service error to its HTTP status, code and message.
// Unknown errors become 500 without leaking their text.
func errorStatus(err error) (int, api.ErrorResponse) {
	var v *common.ValidationError
	if errors.As(err, &v) {
		return http.StatusUnprocessableEntity, api.ErrorResponse{Message: v.Error(), Code: api.CodeValidation, Errors: v.Fields}
	}

	table := []struct {
		target error
		status int
		code   string
	}{
		{common.ErrInvalidCredentials, http.StatusUnauthorized, api.CodeInvalidCredentials},
		{common.ErrInvalidOrExpiredCode, http.StatusUnprocessableEntity, api.CodeInvalidCode},
		{common.ErrUnauthorizedRole, http.StatusForbidden, api.CodeUnauthorizedRole},
		{common.ErrReservedEmail, http.StatusForbidden, api.CodeReservedEmail},
		{common.ErrEmailTaken, http.StatusConflict, api.CodeEmailTaken},
		{common.ErrTokenExpired, http.StatusUnauthorized, api.CodeTokenExpired},
		{common.ErrRefreshTokenExpired, http.StatusUnauthorized, api.CodeUnauthorized},
		{common.ErrInvalidToken, http.StatusUnauthorized, api.CodeUnauthorized},
		{common.ErrorUnauthorized, http.StatusUnauthorized, api.CodeUnauthorized},
		{common.ErrorForbidden, http.StatusForbidden, api.CodeForbidden},
		{archive.ErrDisabled, http.StatusServiceUnavailable, api.CodeArchiveDisabled},
	}
	for _, e := range table {
		if errors.Is(err, e.target) {
			return e.status, api.ErrorResponse{Message: e.target.Error(), Code: e.code}
		}
	}
	return http.StatusInternalServerError, api.ErrorResponse{Message: "internal server error", Code: api.CodeInternal}
}

func writeServiceError(w http.ResponseWriter, err error) {
	status, body := errorStatus(err)
	writeJSON(w, status, body)
}
