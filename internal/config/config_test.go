// Copyright The Telegen Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTempYAML creates a temp YAML file and returns its path.
func writeTempYAML(t testing.TB, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestDefault(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())

	assert.Equal(t, 0.5, c.Thresholds.Predictable)
	assert.Equal(t, 0.3, c.Thresholds.Marginal)
	assert.Equal(t, FormatText, c.Output.Format)
	assert.Equal(t, "all", c.Output.TopScope)
	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, "classprof", c.Metrics.Namespace)
	assert.False(t, c.Tracing.Enabled())
	assert.Equal(t, ProtocolHTTP, c.Tracing.Protocol)
}

func TestLoad_MinimalWithDefaults(t *testing.T) {
	// only marginal is set; everything else falls back
	p := writeTempYAML(t, `
thresholds:
  marginal: 0.25
`)
	c, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, 0.5, c.Thresholds.Predictable)
	assert.Equal(t, 0.25, c.Thresholds.Marginal)
	assert.Equal(t, FormatText, c.Output.Format)
	assert.Equal(t, "classprof", c.Tracing.ServiceName)
}

func TestLoad_FullConfigDecode(t *testing.T) {
	p := writeTempYAML(t, `
thresholds:
  predictable: 0.6
  marginal: 0.4
parse:
  strict: true
output:
  format: prometheus
  top: 15
  top_scope: interface
log:
  level: debug
metrics:
  namespace: pgo
tracing:
  endpoint: "localhost:4317"
  protocol: grpc
  insecure: true
  service_name: pgo-report
  timeout: 3s
  headers:
    x-tenant: a
`)
	c, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, 0.6, c.Thresholds.Predictable)
	assert.Equal(t, 0.4, c.Thresholds.Marginal)
	assert.True(t, c.Parse.Strict)
	assert.Equal(t, FormatPrometheus, c.Output.Format)
	assert.Equal(t, 15, c.Output.Top)
	assert.Equal(t, "interface", c.Output.TopScope)
	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, "pgo", c.Metrics.Namespace)

	assert.True(t, c.Tracing.Enabled())
	assert.Equal(t, "localhost:4317", c.Tracing.Endpoint)
	assert.Equal(t, ProtocolGRPC, c.Tracing.Protocol)
	assert.True(t, c.Tracing.Insecure)
	assert.Equal(t, "pgo-report", c.Tracing.ServiceName)
	assert.Equal(t, 3*time.Second, c.Tracing.Timeout())
	assert.Equal(t, map[string]string{"x-tenant": "a"}, c.Tracing.Headers)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"thresholds out of order", "thresholds: {predictable: 0.3, marginal: 0.5}", "thresholds"},
		{"threshold above one", "thresholds: {predictable: 1.5}", "thresholds"},
		{"unknown format", "output: {format: json}", "output.format"},
		{"negative top", "output: {top: -1}", "output.top"},
		{"unknown top scope", "output: {top_scope: static}", "output.top_scope"},
		{"unknown log level", "log: {level: loud}", "log.level"},
		{"unknown protocol", "tracing: {protocol: udp}", "tracing.protocol"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeTempYAML(t, tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	p := writeTempYAML(t, `
output:
  format: "bad
`) // broken quote

	_, err := Load(p)
	assert.Error(t, err)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestTracingTimeout_Invalid(t *testing.T) {
	assert.Equal(t, 90*time.Minute, Tracing{TimeoutStr: "1h30m"}.Timeout())
	assert.Zero(t, Tracing{TimeoutStr: "not-a-duration"}.Timeout())
}

func BenchmarkLoad(b *testing.B) {
	p := writeTempYAML(b, `
thresholds: { predictable: 0.5, marginal: 0.3 }
output: { format: text, top: 10 }
`)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Load(p); err != nil {
			b.Fatal(err)
		}
	}
}

func TestLoad_ShippedConfig(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "configs", "classprof.yaml"))
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, def.Thresholds, c.Thresholds)
	assert.Equal(t, def.Output, c.Output)
	assert.False(t, c.Tracing.Enabled())
	assert.Equal(t, 10*time.Second, c.Tracing.Timeout())
}
