package telemetry

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var otelVars = []string{
	"OTEL_ENABLED",
	"OTEL_LOGS_ENABLED",
	"OTEL_SERVICE_NAME",
	"OTEL_SERVICE_VERSION",
	"OTEL_EXPORTER_OTLP_TRACES_ENDPOINT",
	"OTEL_EXPORTER_OTLP_LOGS_ENDPOINT",
	"OTEL_EXPORTER_OTLP_TRACES_TIMEOUT",
	"KUBERNETES_SERVICE_HOST",
}

// clearEnv unsets every variable the package reads; t.Setenv restores them.
func clearEnv(t *testing.T) {
	t.Helper()

	for _, key := range otelVars {
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}
}

//nolint:paralleltest // Setenv
func TestLoadConfigFromEnv_ClusterDetection(t *testing.T) {
	tests := []struct {
		name             string
		kubernetesHost   string
		customEndpoint   string
		expectedEndpoint string
	}{
		{
			name:             "cluster detected",
			kubernetesHost:   "10.0.0.1",
			expectedEndpoint: clusterCollectorEndpoint,
		},
		{
			name:             "outside a cluster",
			expectedEndpoint: "",
		},
		{
			name:             "custom endpoint overrides cluster default",
			kubernetesHost:   "10.0.0.1",
			customEndpoint:   "http://custom-collector:4318",
			expectedEndpoint: "http://custom-collector:4318",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			clearEnv(t)

			if test.kubernetesHost != "" {
				t.Setenv("KUBERNETES_SERVICE_HOST", test.kubernetesHost)
			}

			if test.customEndpoint != "" {
				t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", test.customEndpoint)
			}

			config, err := LoadConfigFromEnv("dev")
			require.NoError(t, err)

			assert.Equal(t, test.expectedEndpoint, config.Endpoint)
			assert.Equal(t, test.expectedEndpoint, config.LogsEndpoint)
		})
	}
}

//nolint:paralleltest // Setenv
func TestLoadConfigFromEnv_DefaultValues(t *testing.T) {
	clearEnv(t)

	config, err := LoadConfigFromEnv("test")
	require.NoError(t, err)

	assert.False(t, config.Enabled)
	assert.False(t, config.LogsEnabled)
	assert.Equal(t, defaultServiceVersion, config.ServiceVersion)
	assert.Equal(t, defaultTimeout, config.Timeout)
	assert.Equal(t, "test", config.Environment)
	assert.NotEmpty(t, config.ServiceName)
}

//nolint:paralleltest // Setenv
func TestLoadConfigFromEnv_Overrides(t *testing.T) {
	clearEnv(t)

	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_LOGS_ENABLED", "true")
	t.Setenv("OTEL_SERVICE_NAME", "flexiflow-test")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "http://traces:4318")
	t.Setenv("OTEL_EXPORTER_OTLP_LOGS_ENDPOINT", "http://logs:4318")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_TIMEOUT", "2s")

	config, err := LoadConfigFromEnv("prod")
	require.NoError(t, err)

	assert.Equal(t, &Config{
		ServiceName:    "flexiflow-test",
		ServiceVersion: defaultServiceVersion,
		Environment:    "prod",
		Endpoint:       "http://traces:4318",
		Enabled:        true,
		Timeout:        2 * time.Second,
		LogsEnabled:    true,
		LogsEndpoint:   "http://logs:4318",
	}, config)

	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_TIMEOUT", "soon")

	_, err = LoadConfigFromEnv("prod")
	require.Error(t, err)
}

//nolint:paralleltest // global providers
func TestInitializeDisabled(t *testing.T) {
	require.NoError(t, Initialize(t.Context(), &Config{Enabled: false}))
	require.NoError(t, Initialize(t.Context(), &Config{Enabled: true}))

	assert.Nil(t, LogHandler())
	require.NoError(t, Shutdown(t.Context()))
}
