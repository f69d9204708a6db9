package api

import (
	"errors"
	"net/http"

	"github.com/davidrioja/reelforge/internal/core"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error    string `json:"error"`
	Code     string `json:"code,omitempty"`
	Category string `json:"category,omitempty"`
}

func httpStatusFor(err error) int {
	var domErr *core.DomainError
	if !errors.As(err, &domErr) || domErr == nil {
		return http.StatusInternalServerError
	}

	switch domErr.Category {
	case core.ErrCatValidation:
		return http.StatusBadRequest
	case core.ErrCatNotFound:
		return http.StatusNotFound
	case core.ErrCatAmbiguity, core.ErrCatState:
		return http.StatusConflict
	case core.ErrCatToolExecution:
		return http.StatusBadGateway
	case core.ErrCatCompilation:
		return http.StatusUnprocessableEntity
	case core.ErrCatTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError translates a domain error into an HTTP response.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	body := errorBody{Error: err.Error()}
	var domErr *core.DomainError
	if errors.As(err, &domErr) && domErr != nil {
		body.Code = domErr.Code
		body.Category = string(domErr.Category)
	}
	s.respondJSON(w, httpStatusFor(err), body)
}
