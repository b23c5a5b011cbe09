// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package mqtt

import (
	"crypto/tls"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ObsidianArch02/eco-exoskeleton-project/errors"
	"github.com/sosodev/duration"
)

// Supported network transports.
const (
	NetworkTCP       = "tcp"
	NetworkWebSocket = "ws"
)

const (
	defaultTCPPort   = 1883
	defaultTLSPort   = 8883
	defaultKeepAlive = 60 * time.Second
	maxKeepAlive     = 65535
)

// ConnectionSettings describes how to reach the broker. It can be parsed from
// a connection string or from MQTT_* environment variables.
type ConnectionSettings struct {
	HostName string
	Port     int
	UseTLS   bool
	Network  string
	Path     string

	ClientID     string
	Username     string
	Password     []byte
	PasswordFile string
	KeepAlive    time.Duration
	CleanStart   bool

	CAFile          string
	CertFile        string
	KeyFile         string
	KeyFilePassword string
}

// ParseConnectionString parses a connection string of semicolon-separated
// key=value pairs, e.g.
// HostName=localhost;TcpPort=1883;UseTls=false;ClientId=bubble.
// Keys are case-insensitive.
func ParseConnectionString(connStr string) (*ConnectionSettings, error) {
	return settingsFromMap(parseToSettingsMap(connStr, ";"))
}

// ConnectionSettingsFromEnv parses the connection settings from environment
// variables, e.g.
// MQTT_HOST_NAME=localhost
// MQTT_TCP_PORT=8883
// MQTT_USE_TLS=true.
func ConnectionSettingsFromEnv() (*ConnectionSettings, error) {
	return settingsFromMap(parseToSettingsMap(os.Environ(), "="))
}

func parseToSettingsMap(
	input any,
	delimiter string,
) map[string]string {
	settingsMap := make(map[string]string)

	switch v := input.(type) {
	case string:
		// Parse connection string.
		v = strings.TrimSuffix(v, delimiter)
		params := strings.Split(v, delimiter)
		for _, param := range params {
			kv := strings.SplitN(param, "=", 2)
			if len(kv) == 2 {
				k := strings.ToLower(strings.TrimSpace(kv[0]))
				v := strings.TrimSpace(kv[1])
				settingsMap[k] = v
			}
		}
	case []string:
		// Parse environment variables.
		for _, envVar := range v {
			kv := strings.SplitN(envVar, delimiter, 2)
			if len(kv) == 2 && strings.HasPrefix(kv[0], "MQTT_") {
				k := strings.ToLower(
					strings.ReplaceAll(
						strings.TrimPrefix(kv[0], "MQTT_"),
						"_",
						"",
					),
				)
				v := strings.TrimSpace(kv[1])
				settingsMap[k] = v
			}
		}
	}
	return settingsMap
}

func settingsFromMap(settingsMap map[string]string) (*ConnectionSettings, error) {
	cs := &ConnectionSettings{
		Network:    NetworkTCP,
		KeepAlive:  defaultKeepAlive,
		CleanStart: true,
	}

	cs.HostName = settingsMap["hostname"]
	if cs.HostName == "" {
		return nil, &errors.Error{
			Kind:         errors.ConfigurationInvalid,
			Message:      "HostName must not be empty",
			PropertyName: "HostName",
		}
	}

	assignIfExists(settingsMap, "transport", &cs.Network)
	cs.Network = strings.ToLower(cs.Network)
	if cs.Network == "tls" {
		cs.Network = NetworkTCP
		cs.UseTLS = true
	}

	if value, exists := settingsMap["usetls"]; exists && value != "" {
		useTLS, err := strconv.ParseBool(value)
		if err != nil {
			return nil, &errors.Error{
				Kind:          errors.ConfigurationInvalid,
				Message:       "invalid UseTls in connection string",
				PropertyName:  "UseTls",
				PropertyValue: value,
				NestedError:   err,
			}
		}
		cs.UseTLS = useTLS
	}

	cs.Port = defaultTCPPort
	if cs.UseTLS {
		cs.Port = defaultTLSPort
	}
	if value, exists := settingsMap["tcpport"]; exists && value != "" {
		port, err := strconv.ParseUint(value, 10, 16)
		if err != nil || port == 0 {
			return nil, &errors.Error{
				Kind:          errors.ConfigurationInvalid,
				Message:       "invalid TcpPort in connection string",
				PropertyName:  "TcpPort",
				PropertyValue: value,
			}
		}
		cs.Port = int(port)
	}

	if password, exists := settingsMap["password"]; exists {
		cs.Password = []byte(password)
	}

	assignIfExists(settingsMap, "path", &cs.Path)
	assignIfExists(settingsMap, "clientid", &cs.ClientID)
	assignIfExists(settingsMap, "username", &cs.Username)
	assignIfExists(settingsMap, "passwordfile", &cs.PasswordFile)
	assignIfExists(settingsMap, "certfile", &cs.CertFile)
	assignIfExists(settingsMap, "keyfile", &cs.KeyFile)
	assignIfExists(settingsMap, "keyfilepassword", &cs.KeyFilePassword)
	assignIfExists(settingsMap, "cafile", &cs.CAFile)

	if value, exists := settingsMap["keepalive"]; exists {
		keepAlive, err := duration.Parse(value)
		if err != nil {
			return nil, &errors.Error{
				Kind:          errors.ConfigurationInvalid,
				Message:       "invalid KeepAlive in connection string",
				PropertyName:  "KeepAlive",
				PropertyValue: value,
				NestedError:   err,
			}
		}
		cs.KeepAlive = keepAlive.ToTimeDuration()
	}

	if value, exists := settingsMap["cleanstart"]; exists && value != "" {
		cleanStart, err := strconv.ParseBool(value)
		if err != nil {
			return nil, &errors.Error{
				Kind:          errors.ConfigurationInvalid,
				Message:       "invalid CleanStart in connection string",
				PropertyName:  "CleanStart",
				PropertyValue: value,
				NestedError:   err,
			}
		}
		cs.CleanStart = cleanStart
	}

	// Provide a random clientID by default.
	if cs.ClientID == "" {
		cs.ClientID = RandomClientID()
	}

	if err := cs.Validate(); err != nil {
		return nil, err
	}
	return cs, nil
}

// Validate checks the settings for consistency.
func (cs *ConnectionSettings) Validate() error {
	if _, err := url.Parse(cs.ServerURL()); err != nil {
		return &errors.Error{
			Kind:          errors.ConfigurationInvalid,
			Message:       "server URL is not valid",
			PropertyName:  "serverURL",
			PropertyValue: cs.ServerURL(),
			NestedError:   err,
		}
	}

	switch cs.Network {
	case NetworkTCP, NetworkWebSocket:
	default:
		return &errors.Error{
			Kind:          errors.ConfigurationInvalid,
			Message:       "transport must be tcp, tls or ws",
			PropertyName:  "Transport",
			PropertyValue: cs.Network,
		}
	}

	if cs.KeepAlive < 0 || cs.KeepAlive.Seconds() > float64(maxKeepAlive) {
		return &errors.Error{
			Kind: errors.ConfigurationInvalid,
			Message: fmt.Sprintf(
				"keepAlive cannot be more than %d seconds",
				maxKeepAlive,
			),
			PropertyName:  "keepAlive",
			PropertyValue: cs.KeepAlive,
		}
	}

	if (cs.CertFile != "") != (cs.KeyFile != "") {
		return &errors.Error{
			Kind:         errors.ConfigurationInvalid,
			Message:      "certificate file and key file must be provided together",
			PropertyName: "certFile/keyFile",
		}
	}

	if !cs.UseTLS && (cs.CertFile != "" || cs.KeyFile != "" || cs.CAFile != "") {
		return &errors.Error{
			Kind:          errors.ConfigurationInvalid,
			Message:       "TLS should not be set when useTLS flag is disabled",
			PropertyName:  "useTLS",
			PropertyValue: cs.UseTLS,
		}
	}

	return nil
}

// ServerURL renders the settings as a broker URL.
func (cs *ConnectionSettings) ServerURL() string {
	scheme := "tcp"
	switch {
	case cs.Network == NetworkWebSocket && cs.UseTLS:
		scheme = "wss"
	case cs.Network == NetworkWebSocket:
		scheme = "ws"
	case cs.UseTLS:
		scheme = "tls"
	}

	u := scheme + "://" + hostPort(cs.HostName, cs.Port)
	if cs.Network == NetworkWebSocket {
		path := cs.Path
		if path == "" {
			path = "/mqtt"
		}
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		u += path
	}
	return u
}

// KeepAliveSeconds returns the keep-alive in whole seconds as sent on the wire.
func (cs *ConnectionSettings) KeepAliveSeconds() uint16 {
	return uint16(cs.KeepAlive / time.Second)
}

// Credentials resolves the username and password, reading the password file
// if one is configured.
func (cs *ConnectionSettings) Credentials() (string, []byte, error) {
	if cs.PasswordFile == "" {
		return cs.Username, cs.Password, nil
	}
	data, err := os.ReadFile(cs.PasswordFile)
	if err != nil {
		return "", nil, &errors.Error{
			Kind:          errors.ConfigurationInvalid,
			Message:       "cannot read password from PasswordFile",
			PropertyName:  "PasswordFile",
			PropertyValue: cs.PasswordFile,
			NestedError:   err,
		}
	}
	return cs.Username, data, nil
}

// TLSConfig builds the TLS configuration, or nil when TLS is disabled.
func (cs *ConnectionSettings) TLSConfig() (*tls.Config, error) {
	if !cs.UseTLS {
		return nil, nil
	}

	config := &tls.Config{
		MinVersion: tls.VersionTLS12,
		MaxVersion: tls.VersionTLS13,
	}

	// Bypasses hostname check in TLS config when deliberately connecting to
	// localhost.
	if cs.HostName == "localhost" {
		config.InsecureSkipVerify = true // #nosec G402
	}

	if cs.CertFile != "" {
		var cert tls.Certificate
		var err error

		if cs.KeyFilePassword != "" {
			cert, err = loadX509KeyPairWithPassword(
				cs.CertFile,
				cs.KeyFile,
				cs.KeyFilePassword,
			)
		} else {
			cert, err = tls.LoadX509KeyPair(cs.CertFile, cs.KeyFile)
		}

		if err != nil {
			return nil, &errors.Error{
				Kind:         errors.ConfigurationInvalid,
				Message:      "X509 key pair cannot be loaded",
				PropertyName: "certFile/keyFile",
				NestedError:  err,
			}
		}

		config.Certificates = []tls.Certificate{cert}
	}

	if cs.CAFile != "" {
		caCertPool, err := loadCACertPool(cs.CAFile)
		if err != nil {
			return nil, &errors.Error{
				Kind: errors.ConfigurationInvalid,
				Message: "cannot load a CA certificate pool " +
					"from caFile",
				PropertyName:  "caFile",
				PropertyValue: cs.CAFile,
				NestedError:   err,
			}
		}
		config.RootCAs = caCertPool
	}

	return config, nil
}

// Provider builds the connection provider described by the settings.
func (cs *ConnectionSettings) Provider() (ConnectionProvider, error) {
	config, err := cs.TLSConfig()
	if err != nil {
		return nil, err
	}

	switch {
	case cs.Network == NetworkWebSocket && config != nil:
		return WebSocketConnection(cs.ServerURL(), ConstantTLSConfig(config)), nil
	case cs.Network == NetworkWebSocket:
		return WebSocketConnection(cs.ServerURL(), nil), nil
	case config != nil:
		return TLSConnection(cs.HostName, cs.Port, ConstantTLSConfig(config)), nil
	default:
		return TCPConnection(cs.HostName, cs.Port), nil
	}
}

// assignIfExists assigns non-empty string values from settingsMap to the
// corresponding fields in connection settings.
func assignIfExists(
	settingsMap map[string]string,
	key string,
	field *string,
) {
	if value, exists := settingsMap[key]; exists && value != "" {
		*field = value
	}
}
