package telemetry

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnabled_UnsetDefaultsFalse(t *testing.T) {
	old, had := os.LookupEnv(enableEnvVar)
	require.NoError(t, os.Unsetenv(enableEnvVar))
	t.Cleanup(func() {
		if had {
			os.Setenv(enableEnvVar, old)
		}
	})
	require.False(t, enabled())
}

func TestEnabled_TruthyValues(t *testing.T) {
	for _, v := range []string{"1", "true", "TRUE", "t"} {
		t.Setenv(enableEnvVar, v)
		require.True(t, enabled(), "value %q should enable tracing", v)
	}
}

func TestEnabled_FalsyOrGarbageValues(t *testing.T) {
	for _, v := range []string{"0", "false", "not-a-bool"} {
		t.Setenv(enableEnvVar, v)
		require.False(t, enabled(), "value %q should not enable tracing", v)
	}
}

func TestShutdown_NoopWhenNeverInitialized(t *testing.T) {
	shutdownFn = nil
	require.NoError(t, Shutdown(nil))
}
