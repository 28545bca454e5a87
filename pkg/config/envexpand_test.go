package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("ORCHESTRATOR_TEST_VAR", "value")

	t.Run("braced form expands", func(t *testing.T) {
		out := ExpandEnv([]byte("dsn: ${ORCHESTRATOR_TEST_VAR}"))
		assert.Equal(t, "dsn: value", string(out))
	})

	t.Run("bare form expands", func(t *testing.T) {
		out := ExpandEnv([]byte("dsn: $ORCHESTRATOR_TEST_VAR"))
		assert.Equal(t, "dsn: value", string(out))
	})

	t.Run("missing variable expands to empty string", func(t *testing.T) {
		os.Unsetenv("ORCHESTRATOR_MISSING_VAR")
		out := ExpandEnv([]byte("x: ${ORCHESTRATOR_MISSING_VAR}"))
		assert.Equal(t, "x: ", string(out))
	})
}
