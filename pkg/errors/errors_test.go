package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchConfigError_Message(t *testing.T) {
	err := NewMatchConfigError("threshold 150 is outside 0-100").
		AddParameter("threshold")
	assert.Equal(t, "parameter 'threshold': threshold 150 is outside 0-100", err.Error())

	err = NewMatchConfigError("missing column").
		AddColumn("post_url").
		AddDataset("a")
	assert.Equal(t, "dataset 'a' -> column 'post_url': missing column", err.Error())
}

func TestMatchConfigErrorf_WrapsErrors(t *testing.T) {
	cause := errors.New("boom")
	err := NewMatchConfigErrorf("failed to parse: %w", cause)
	assert.Contains(t, err.Error(), "boom")
}

func TestWrapMatchConfigError(t *testing.T) {
	original := NewMatchConfigError("bad").AddColumn("c")
	assert.Same(t, original, WrapMatchConfigError(original))

	wrapped := WrapMatchConfigError(errors.New("plain"))
	require.NotNil(t, wrapped)
	assert.Contains(t, wrapped.Error(), "plain")
}

func TestIsMatchConfigError(t *testing.T) {
	err := NewMatchConfigError("bad")
	assert.True(t, IsMatchConfigError(err))
	assert.False(t, IsMatchConfigError(errors.New("other")))
	assert.False(t, IsMatchConfigError(nil))
}

func TestToHTTPError(t *testing.T) {
	err := NewMatchConfigError("missing column").
		AddColumn("post_url").
		AddDataset("a")

	httpErr := err.ToHTTPError()
	require.NotNil(t, httpErr)
	assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(httpErr))
	assert.Equal(t, "post_url", httpErr.Meta["column"])
	assert.Equal(t, "a", httpErr.Meta["dataset"])
}
