package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("PIXELVAULT_TEST_VALUE", "set")
	assert.Equal(t, "set", GetEnv("PIXELVAULT_TEST_VALUE", "fallback"))

	t.Setenv("PIXELVAULT_TEST_EMPTY", "")
	assert.Equal(t, "", GetEnv("PIXELVAULT_TEST_EMPTY", "fallback"), "empty but set wins")

	assert.Equal(t, "fallback", GetEnv("PIXELVAULT_TEST_MISSING", "fallback"))
}
