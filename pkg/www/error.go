package www

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/cyclopcam/crosswalk/pkg/dataerr"
)

// HTTPError is an object that can be panic'ed, and the outer HTTP handler function
// will return the appropriate HTTP error message.
type HTTPError struct {
	Code    int
	Message string
}

func (e HTTPError) Error() string {
	return fmt.Sprintf("%v %v", e.Code, e.Message)
}

func Error(code int, message string) HTTPError {
	return HTTPError{code, message}
}

// PanicBadRequestf panics with a 400 Bad Request.
func PanicBadRequestf(format string, args ...interface{}) {
	panic(HTTPError{http.StatusBadRequest, fmt.Sprintf(format, args...)})
}

// PanicNotFoundf panics with a 404 Not Found.
func PanicNotFoundf(format string, args ...interface{}) {
	panic(HTTPError{http.StatusNotFound, fmt.Sprintf(format, args...)})
}

func PanicServerErrorf(format string, args ...interface{}) {
	panic(HTTPError{http.StatusInternalServerError, fmt.Sprintf(format, args...)})
}

// Check causes a panic if err is not nil.
// Data errors are translated into the closest HTTP status code.
func Check(err error) {
	if err == nil {
		return
	}
	if code := StatusOf(err); code != http.StatusInternalServerError {
		panic(HTTPError{code, err.Error()})
	}
	panic(err)
}

// StatusOf maps an error onto an HTTP status code
func StatusOf(err error) int {
	var hErr HTTPError
	switch {
	case errors.As(err, &hErr):
		return hErr.Code
	case errors.Is(err, dataerr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, dataerr.ErrSchema),
		errors.Is(err, dataerr.ErrRange),
		errors.Is(err, dataerr.ErrInvalidRange),
		errors.Is(err, dataerr.ErrDuplicateKey):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
