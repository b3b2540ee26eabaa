package errors

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
)

// MatchConfigError describes an invalid match run configuration. It is
// returned before any matching work starts so callers never see a
// partially annotated dataset.
type MatchConfigError struct {
	Parameter string
	Column    string
	Dataset   string
	Message   string
}

func NewMatchConfigError(msg string) *MatchConfigError {
	return &MatchConfigError{
		Message:   msg,
		Parameter: "",
		Column:    "",
		Dataset:   "",
	}
}

// NewMatchConfigErrorf creates a new MatchConfigError with a formatted message
func NewMatchConfigErrorf(format string, args ...any) *MatchConfigError {
	// Handle error wrapping directive %w
	// If one of the args is an error and format contains %w,
	// extract the error message and replace %w with %v
	for i, arg := range args {
		if err, ok := arg.(error); ok && strings.Contains(format, "%w") {
			format = strings.Replace(format, "%w", "%v", 1)
			args[i] = err.Error()
		}
	}

	return &MatchConfigError{
		Message: fmt.Sprintf(format, args...),
	}
}

func WrapMatchConfigError(e error) *MatchConfigError {
	if e == nil {
		return nil
	}

	if configError, ok := e.(*MatchConfigError); ok {
		return configError
	}

	return &MatchConfigError{
		Message: e.Error(),
	}
}

func (e *MatchConfigError) Error() string {
	path := []string{}
	if e.Dataset != "" {
		path = append(path, fmt.Sprintf("dataset '%s'", e.Dataset))
	}
	if e.Column != "" {
		path = append(path, fmt.Sprintf("column '%s'", e.Column))
	}
	if e.Parameter != "" {
		path = append(path, fmt.Sprintf("parameter '%s'", e.Parameter))
	}

	if len(path) == 0 {
		return e.Message
	}

	return strings.Join(path, " -> ") + ": " + e.Message
}

func (e *MatchConfigError) AddParameter(parameter string) *MatchConfigError {
	e.Parameter = parameter
	return e
}

func (e *MatchConfigError) AddColumn(column string) *MatchConfigError {
	e.Column = column
	return e
}

func (e *MatchConfigError) AddDataset(dataset string) *MatchConfigError {
	e.Dataset = dataset
	return e
}

func (e *MatchConfigError) ToHTTPError() *httperror.HTTPError {
	return httperror.NewHTTPError(http.StatusBadRequest, e.Error()).AddMetaValue("dataset", e.Dataset).AddMetaValue("column", e.Column).AddMetaValue("parameter", e.Parameter)
}

func IsMatchConfigError(err error) bool {
	_, ok := err.(*MatchConfigError)
	return ok
}
