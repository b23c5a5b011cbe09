// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package mqtt_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ObsidianArch02/eco-exoskeleton-project/errors"
	"github.com/ObsidianArch02/eco-exoskeleton-project/mqtt"
	"github.com/stretchr/testify/require"
)

func TestParseConnectionString(t *testing.T) {
	cs, err := mqtt.ParseConnectionString(
		"HostName=broker.local;TcpPort=1884;ClientId=bubble;" +
			"Username=exo;Password=pass;KeepAlive=PT30S;CleanStart=false;",
	)
	require.NoError(t, err)
	require.Equal(t, &mqtt.ConnectionSettings{
		HostName:   "broker.local",
		Port:       1884,
		Network:    mqtt.NetworkTCP,
		ClientID:   "bubble",
		Username:   "exo",
		Password:   []byte("pass"),
		KeepAlive:  30 * time.Second,
		CleanStart: false,
	}, cs)
	require.Equal(t, "tcp://broker.local:1884", cs.ServerURL())
	require.Equal(t, uint16(30), cs.KeepAliveSeconds())
}

func TestParseConnectionStringDefaults(t *testing.T) {
	cs, err := mqtt.ParseConnectionString("hostname=localhost")
	require.NoError(t, err)
	require.Equal(t, 1883, cs.Port)
	require.True(t, cs.CleanStart)
	require.Equal(t, 60*time.Second, cs.KeepAlive)
	require.NotEmpty(t, cs.ClientID)

	cs, err = mqtt.ParseConnectionString("HostName=localhost;UseTls=true")
	require.NoError(t, err)
	require.Equal(t, 8883, cs.Port)
	require.Equal(t, "tls://localhost:8883", cs.ServerURL())

	cs, err = mqtt.ParseConnectionString(
		"HostName=localhost;TcpPort=8080;Transport=WS;Path=ws",
	)
	require.NoError(t, err)
	require.Equal(t, "ws://localhost:8080/ws", cs.ServerURL())
}

func TestParseConnectionStringInvalid(t *testing.T) {
	for name, connStr := range map[string]string{
		"MissingHost":    "TcpPort=1883",
		"BadPort":        "HostName=localhost;TcpPort=abc",
		"ZeroPort":       "HostName=localhost;TcpPort=0",
		"BadTLSFlag":     "HostName=localhost;UseTls=maybe",
		"BadKeepAlive":   "HostName=localhost;KeepAlive=soon",
		"LongKeepAlive":  "HostName=localhost;KeepAlive=PT20H",
		"BadTransport":   "HostName=localhost;Transport=quic",
		"TLSWithoutFlag": "HostName=localhost;CAFile=ca.pem",
		"CertWithoutKey": "HostName=localhost;UseTls=true;CertFile=c.pem",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := mqtt.ParseConnectionString(connStr)
			require.Error(t, err)
			require.True(t, errors.IsKind(err, errors.ConfigurationInvalid))
		})
	}
}

func TestConnectionSettingsFromEnv(t *testing.T) {
	t.Setenv("MQTT_HOST_NAME", "envhost")
	t.Setenv("MQTT_TCP_PORT", "2883")
	t.Setenv("MQTT_CLIENT_ID", "greenhouse")

	cs, err := mqtt.ConnectionSettingsFromEnv()
	require.NoError(t, err)
	require.Equal(t, "envhost", cs.HostName)
	require.Equal(t, 2883, cs.Port)
	require.Equal(t, "greenhouse", cs.ClientID)
}

func TestCredentialsFromPasswordFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "password")
	require.NoError(t, os.WriteFile(file, []byte("filepass"), 0o600))

	cs, err := mqtt.ParseConnectionString(
		"HostName=localhost;Username=exo;PasswordFile=" + file,
	)
	require.NoError(t, err)

	username, password, err := cs.Credentials()
	require.NoError(t, err)
	require.Equal(t, "exo", username)
	require.Equal(t, []byte("filepass"), password)

	cs.PasswordFile = filepath.Join(t.TempDir(), "missing")
	_, _, err = cs.Credentials()
	require.True(t, errors.IsKind(err, errors.ConfigurationInvalid))
}

func TestTLSConfig(t *testing.T) {
	cs, err := mqtt.ParseConnectionString("HostName=localhost")
	require.NoError(t, err)
	config, err := cs.TLSConfig()
	require.NoError(t, err)
	require.Nil(t, config)

	cs, err = mqtt.ParseConnectionString("HostName=localhost;UseTls=true")
	require.NoError(t, err)
	config, err = cs.TLSConfig()
	require.NoError(t, err)
	require.True(t, config.InsecureSkipVerify)

	cs.CAFile = filepath.Join(t.TempDir(), "missing.pem")
	_, err = cs.TLSConfig()
	require.True(t, errors.IsKind(err, errors.ConfigurationInvalid))
}

func TestTLSTransportAlias(t *testing.T) {
	cs, err := mqtt.ParseConnectionString("HostName=localhost;Transport=tls")
	require.NoError(t, err)
	require.True(t, cs.UseTLS)
	require.Equal(t, mqtt.NetworkTCP, cs.Network)
	require.Equal(t, "tls://localhost:8883", cs.ServerURL())
}
