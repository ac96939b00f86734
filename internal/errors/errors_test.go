package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsCode(t *testing.T) {
	base := MalformedInput("missing %s", "#END-METADATA")
	wrapped := Wrapf(base, "reading %s", "a.csv")

	assert.Equal(t, CodeMalformedInput, GetCode(wrapped))
	assert.True(t, HasCode(wrapped, CodeMalformedInput))
	assert.Contains(t, wrapped.Error(), "missing #END-METADATA")
}

func TestWrapPlainError(t *testing.T) {
	wrapped := Wrap(fmt.Errorf("disk full"), "write failed")
	assert.Equal(t, CodeInternalError, GetCode(wrapped))
	assert.False(t, HasCode(wrapped, CodeMalformedInput))
	assert.Nil(t, Wrap(nil, "ignored"))
}

func TestHasCodeThroughStdlibWrapping(t *testing.T) {
	err := fmt.Errorf("file b.csv: %w", UnknownDirection("diagonal"))
	assert.True(t, HasCode(err, CodeUnknownDirection))
	assert.Equal(t, CodeUnknownDirection, GetCode(err))
	assert.Equal(t, "UNKNOWN", GetCode(fmt.Errorf("plain")))
}
