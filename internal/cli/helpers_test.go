package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArgAt(t *testing.T) {
	args := []string{"one", "two"}
	assert.Equal(t, "one", argAt(args, 0))
	assert.Equal(t, "two", argAt(args, 1))
	assert.Equal(t, "", argAt(args, 2))
	assert.Equal(t, "", argAt(nil, 0))
}

func TestMinInt(t *testing.T) {
	assert.Equal(t, 3, minInt(3, 5))
	assert.Equal(t, 3, minInt(5, 3))
	assert.Equal(t, 3, minInt(3, 3))
}

func TestPresence(t *testing.T) {
	assert.Equal(t, "present", presence(true))
	assert.Equal(t, "absent", presence(false))
}

func TestValueOr(t *testing.T) {
	assert.Equal(t, "x", valueOr("x", "default"))
	assert.Equal(t, "default", valueOr("", "default"))
}
