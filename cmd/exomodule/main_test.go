// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ObsidianArch02/eco-exoskeleton-project/internal/testbroker"
	"github.com/stretchr/testify/require"
)

func TestParseFlagsOverrideConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"module: greenhouse\ntransport: mqtt311\nlog:\n  level: debug\n",
	), 0o600))

	var out bytes.Buffer
	cfg, err := parse([]string{
		"--config", path,
		"--transport", "mqtt5",
		"--log-format", "json",
	}, &out)
	require.NoError(t, err)
	require.Equal(t, "greenhouse", cfg.Module)
	require.Equal(t, "mqtt5", cfg.Transport)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "json", cfg.Log.Format)
}

func TestParseRejectsInvalidValues(t *testing.T) {
	var out bytes.Buffer
	_, err := parse([]string{"--module", "drone"}, &out)
	require.Error(t, err)

	_, err = parse([]string{"--transport", "mqtt3"}, &out)
	require.Error(t, err)

	require.Equal(t, exitUsage, run(context.Background(), []string{"--bogus"}, &out))
	require.Equal(t, exitOK, run(context.Background(), []string{"--help"}, &out))
}

func TestRunWithEmbeddedBroker(t *testing.T) {
	brokerAddr := testbroker.FreeAddress(t)
	metricsAddr := testbroker.FreeAddress(t)
	_, port, err := net.SplitHostPort(brokerAddr)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out bytes.Buffer
	done := make(chan int, 1)
	go func() {
		done <- run(ctx, []string{
			"--module", "injection",
			"--embedded-broker", brokerAddr,
			"--broker", "HostName=127.0.0.1;TcpPort=" + port,
			"--metrics-addr", metricsAddr,
			"--log-level", "off",
		}, &out)
	}()

	healthy := func() bool {
		res, err := http.Get("http://" + metricsAddr + "/healthz")
		if err != nil {
			return false
		}
		defer res.Body.Close()
		return res.StatusCode == http.StatusOK
	}
	require.Eventually(t, healthy, 10*time.Second, 50*time.Millisecond)

	res, err := http.Get("http://" + metricsAddr + "/status")
	require.NoError(t, err)
	defer res.Body.Close()
	var status map[string]any
	require.NoError(t, json.NewDecoder(res.Body).Decode(&status))
	require.Equal(t, "injection", status["module"])
	require.Equal(t, "BROKER_CONNECTED", status["connection"])
	require.Equal(t, "IDLE", status["actuator_phase"])

	cancel()
	select {
	case code := <-done:
		require.Equal(t, exitOK, code)
	case <-time.After(5 * time.Second):
		t.Fatal("module did not shut down")
	}
}

func TestRunRestartExitCode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exo.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[connectivity]
link_attempts = 1
link_retry_delay = "1ms"
cycle_retry_delay = "1ms"
max_failed_cycles = 2
`), 0o600))

	_, port, err := net.SplitHostPort(testbroker.FreeAddress(t))
	require.NoError(t, err)

	var out bytes.Buffer
	code := run(context.Background(), []string{
		"--config", path,
		"--broker", "HostName=127.0.0.1;TcpPort=" + port,
		"--log-level", "off",
	}, &out)
	require.Equal(t, exitRestart, code)
}
