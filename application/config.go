package application

import (
	"fmt"
	"math"
	"time"
)

const (
	DefaultHost       = "127.0.0.1"
	DefaultPort       = 1883
	DefaultQoS        = 1
	DefaultKeepAlive  = 60
	DefaultTopic      = "/FROM/Gateway/Info"
	DefaultTopicWill  = "status/offline"
	DefaultClientName = "Network Assistant"
	DefaultInterface  = "wlan0"
)

// ConfigTree is a decoded structured config file. Nested tables are
// map[string]any values.
type ConfigTree map[string]any

func (c ConfigTree) Section(key string) ConfigTree {
	switch v := c[key].(type) {
	case map[string]any:
		return ConfigTree(v)
	case ConfigTree:
		return v
	}
	return ConfigTree{}
}

func (c ConfigTree) String(key, def string) (string, error) {
	v, ok := c[key]
	if !ok || v == nil {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("config key %q: expected string, got %T", key, v)
	}
	return s, nil
}

func (c ConfigTree) Int(key string, def int) (int, error) {
	v, ok := c[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("config key %q: expected integer, got %v", key, n)
		}
		return int(n), nil
	}
	return 0, fmt.Errorf("config key %q: expected integer, got %T", key, v)
}

func (c ConfigTree) Bool(key string, def bool) (bool, error) {
	v, ok := c[key]
	if !ok || v == nil {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("config key %q: expected bool, got %T", key, v)
	}
	return b, nil
}

type ConnectionConfig struct {
	Host         string
	Port         int
	Username     string
	Password     string
	ClientID     string
	QoS          byte
	KeepAlive    time.Duration
	Retain       bool
	TLSCACerts   string
	CleanSession bool
}

func (c ConnectionConfig) BrokerURL() string {
	scheme := "tcp"
	if c.TLSCACerts != "" {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, c.Host, c.Port)
}

func (c ConnectionConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range 1-65535", c.Port)
	}
	if c.QoS > 2 {
		return fmt.Errorf("qos %d is not one of 0, 1, 2", c.QoS)
	}
	if c.KeepAlive <= 0 {
		return fmt.Errorf("keepalive must be positive")
	}
	return nil
}

type TopicConfig struct {
	Topic     string
	TopicWill string
}

// ConnectionConfigFromTree reads the [mqtt] section of a config file,
// filling in defaults for absent keys.
func ConnectionConfigFromTree(tree ConfigTree) (ConnectionConfig, TopicConfig, error) {
	var (
		conn   ConnectionConfig
		topics TopicConfig
		err    error
	)

	stringKeys := []struct {
		key string
		def string
		dst *string
	}{
		{"host", DefaultHost, &conn.Host},
		{"username", "", &conn.Username},
		{"password", "", &conn.Password},
		{"client_id", "", &conn.ClientID},
		{"tls_ca_certs", "", &conn.TLSCACerts},
		{"topic", DefaultTopic, &topics.Topic},
		{"topic_will", DefaultTopicWill, &topics.TopicWill},
	}
	for _, s := range stringKeys {
		if *s.dst, err = tree.String(s.key, s.def); err != nil {
			return conn, topics, err
		}
	}

	if conn.Port, err = tree.Int("port", DefaultPort); err != nil {
		return conn, topics, err
	}

	qos, err := tree.Int("qos", DefaultQoS)
	if err != nil {
		return conn, topics, err
	}
	if qos < 0 || qos > 2 {
		return conn, topics, fmt.Errorf("qos %d is not one of 0, 1, 2", qos)
	}
	conn.QoS = byte(qos)

	keepAlive, err := tree.Int("keepalive", DefaultKeepAlive)
	if err != nil {
		return conn, topics, err
	}
	conn.KeepAlive = time.Duration(keepAlive) * time.Second

	if conn.Retain, err = tree.Bool("retain", false); err != nil {
		return conn, topics, err
	}
	if conn.CleanSession, err = tree.Bool("clean_session", true); err != nil {
		return conn, topics, err
	}

	if topics.Topic == "" {
		return conn, topics, fmt.Errorf("topic is required")
	}

	return conn, topics, conn.Validate()
}
