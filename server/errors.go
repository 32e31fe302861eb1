package server

import (
	"net/http"

	"github.com/teranos/longrun/errors"
)

// httpStatus maps the shared sentinel errors onto HTTP status codes
func httpStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.IsNotFoundError(err):
		return http.StatusNotFound
	case errors.IsInvalidRequestError(err):
		return http.StatusBadRequest
	case errors.Is(err, errors.ErrJobsInFlight):
		return http.StatusConflict
	case errors.Is(err, errors.ErrRegistry), errors.Is(err, errors.ErrMalformedRecord):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
