package client

import (
	"net/http"
	"sort"

	"github.com/dmitrijs2005/ojtauth/internal/api"
	"github.com/dmitrijs2005/ojtauth/internal/common"
)

// APIError is a non-2xx answer from the server. It unwraps to the matching
// sentinel from internal/common.
type APIError struct {
	Status  int
	Code    string
	Message string
	Fields  map[string][]string
	kind    error
}

// Error returns the single message to display: the first field error in
// sorted field order, else the server message.
func (e *APIError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if len(e.Fields[k]) > 0 {
			return e.Fields[k][0]
		}
	}
	if e.Message != "" {
		return e.Message
	}
	return e.kind.Error()
}

func (e *APIError) Unwrap() error { return e.kind }

var codeErrors = map[string]error{
	api.CodeInvalidCredentials: common.ErrInvalidCredentials,
	api.CodeInvalidCode:        common.ErrInvalidOrExpiredCode,
	api.CodeUnauthorizedRole:   common.ErrUnauthorizedRole,
	api.CodeReservedEmail:      common.ErrReservedEmail,
	api.CodeEmailTaken:         common.ErrEmailTaken,
	api.CodeValidation:         common.ErrValidation,
	api.CodeTokenExpired:       common.ErrTokenExpired,
	api.CodeUnauthorized:       common.ErrorUnauthorized,
	api.CodeForbidden:          common.ErrorForbidden,
	api.CodeBadRequest:         common.ErrValidation,
	api.CodeArchiveDisabled:    common.ErrorInternal,
	api.CodeInternal:           common.ErrorInternal,
}

func newAPIError(status int, body *api.ErrorResponse) *APIError {
	e := &APIError{Status: status}
	if body != nil {
		e.Code, e.Message, e.Fields = body.Code, body.Message, body.Errors
	}
	if kind, ok := codeErrors[e.Code]; ok {
		e.kind = kind
		return e
	}

	switch {
	case status == http.StatusBadGateway || status == http.StatusServiceUnavailable || status == http.StatusGatewayTimeout:
		e.kind = common.ErrTransport
		e.Message = ""
	case status == http.StatusUnauthorized:
		e.kind = common.ErrorUnauthorized
	case status == http.StatusForbidden:
		e.kind = common.ErrorForbidden
	case status == http.StatusUnprocessableEntity:
		e.kind = common.ErrValidation
	default:
		e.kind = common.ErrorInternal
	}
	return e
}
