// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ObsidianArch02/eco-exoskeleton-project/config"
	"github.com/ObsidianArch02/eco-exoskeleton-project/errors"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	require.Equal(t, config.Default(), cfg)
	require.Equal(t, uint64(20), cfg.Connectivity.LinkAttempts)
	require.Equal(t, 500*time.Millisecond, cfg.Connectivity.LinkRetryDelay.Std())
	require.Equal(t, 5*time.Second, cfg.Connectivity.CycleRetryDelay.Std())
	require.Equal(t, 5, cfg.Connectivity.MaxFailedCycles)
	require.Equal(t, 10*time.Millisecond, cfg.LoopYield.Std())
	require.Equal(t, "internal/resubscribe", cfg.Connectivity.ResubscribeTopic)
}

func TestLoadYAML(t *testing.T) {
	path := write(t, "exo.yaml", `
module: greenhouse
broker: HostName=broker;TcpPort=1884
transport: mqtt311
loop_yield: 20ms
log:
  level: debug
  format: json
connectivity:
  link_retry_delay: PT1S
  cycle_retry_delay: 10s
  max_failed_cycles: 3
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "greenhouse", cfg.Module)
	require.Equal(t, config.TransportMQTT311, cfg.Transport)
	require.Equal(t, 20*time.Millisecond, cfg.LoopYield.Std())
	require.Equal(t, time.Second, cfg.Connectivity.LinkRetryDelay.Std())
	require.Equal(t, 10*time.Second, cfg.Connectivity.CycleRetryDelay.Std())
	require.Equal(t, 3, cfg.Connectivity.MaxFailedCycles)
	require.Equal(t, uint64(20), cfg.Connectivity.LinkAttempts)

	level, on := cfg.Log.SlogLevel()
	require.True(t, on)
	require.Equal(t, slog.LevelDebug, level)
}

func TestLoadTOML(t *testing.T) {
	path := write(t, "exo.toml", `
module = "injection"
metrics_addr = ":9090"

[connectivity]
link_attempts = 3
cycle_retry_delay = "PT2S"

[simulation]
noise = 0.0
seed = 42
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "injection", cfg.Module)
	require.Equal(t, ":9090", cfg.MetricsAddr)
	require.Equal(t, uint64(3), cfg.Connectivity.LinkAttempts)
	require.Equal(t, 2*time.Second, cfg.Connectivity.CycleRetryDelay.Std())
	require.Equal(t, config.Simulation{Noise: 0, Seed: 42}, cfg.Simulation)
}

func TestEmptyYAMLKeepsDefaults(t *testing.T) {
	cfg, err := config.Load(write(t, "exo.yml", ""))
	require.NoError(t, err)
	require.Equal(t, config.Default(), cfg)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("EXO_MODULE", "injection")
	t.Setenv("EXO_LOG_LEVEL", "off")
	t.Setenv("EXO_LOOP_YIELD", "50ms")
	t.Setenv("EXO_MAX_FAILED_CYCLES", "2")

	cfg, err := config.Load(write(t, "exo.yaml", "module: greenhouse\n"))
	require.NoError(t, err)
	require.Equal(t, "injection", cfg.Module)
	require.Equal(t, 50*time.Millisecond, cfg.LoopYield.Std())
	require.Equal(t, 2, cfg.Connectivity.MaxFailedCycles)

	_, on := cfg.Log.SlogLevel()
	require.False(t, on)
}

func TestInvalid(t *testing.T) {
	for name, file := range map[string][2]string{
		"UnknownModule":  {"exo.yaml", "module: drone\n"},
		"UnknownKeyYAML": {"exo.yaml", "modle: bubble\n"},
		"UnknownKeyTOML": {"exo.toml", "modle = \"bubble\"\n"},
		"BadDuration":    {"exo.yaml", "loop_yield: soon\n"},
		"BadTransport":   {"exo.yaml", "transport: coap\n"},
		"BadLevel":       {"exo.yaml", "log: {level: loud}\n"},
		"BadFormat":      {"exo.yaml", "log: {format: xml}\n"},
		"ZeroYield":      {"exo.yaml", "loop_yield: 0s\n"},
		"ZeroAttempts":   {"exo.toml", "[connectivity]\nlink_attempts = 0\n"},
		"BadPattern":     {"exo.yaml", "topic_pattern: exo/{module}/status\n"},
		"BadExtension":   {"exo.json", "{}"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := config.Load(write(t, file[0], file[1]))
			require.Error(t, err)
			require.True(t, errors.IsKind(err, errors.ConfigurationInvalid), "%v", err)
		})
	}
}

func TestMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.True(t, errors.IsKind(err, errors.ConfigurationInvalid))
}

func TestConnection(t *testing.T) {
	cfg := config.Default()
	cs, err := cfg.Connection()
	require.NoError(t, err)
	require.Equal(t, "tcp://localhost:1883", cs.ServerURL())

	cfg.Broker = "HostName=broker;TcpPort=1884;ClientId=a"
	cfg.ClientID = "bubble-1"
	cs, err = cfg.Connection()
	require.NoError(t, err)
	require.Equal(t, "tcp://broker:1884", cs.ServerURL())
	require.Equal(t, "bubble-1", cs.ClientID)
}

func TestParseDuration(t *testing.T) {
	for in, want := range map[string]time.Duration{
		"250ms":  250 * time.Millisecond,
		"PT5S":   5 * time.Second,
		"PT1M":   time.Minute,
		"1h2m3s": time.Hour + 2*time.Minute + 3*time.Second,
	} {
		got, err := config.ParseDuration(in)
		require.NoError(t, err)
		require.Equal(t, want, got, in)
	}
	_, err := config.ParseDuration("later")
	require.Error(t, err)
}
