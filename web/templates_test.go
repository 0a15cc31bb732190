package web

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCSRFField(t *testing.T) {
	assert.Equal(t, `<input type="hidden" name="csrf_token" value="a&lt;b">`, string(CSRFField("a<b")))
	assert.Empty(t, string(CSRFField("")))
}
