package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// DatabaseConfig holds Postgres connection settings for the estimate history store.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MQTTConfig holds MQTT broker settings.
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	QoS      byte
}

// NATSConfig holds NATS connection settings.
type NATSConfig struct {
	URL            string
	Name           string
	ConnectTimeout time.Duration
	ReconnectWait  time.Duration
}

// GetDSN builds a lib/pq connection string.
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// LoadFromEnv overrides fields from <prefix>_HOST, <prefix>_PORT, ...
func (c *DatabaseConfig) LoadFromEnv(prefix string) {
	if host := os.Getenv(prefix + "_HOST"); host != "" {
		c.Host = host
	}
	if port := os.Getenv(prefix + "_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Port = p
		}
	}
	if user := os.Getenv(prefix + "_USER"); user != "" {
		c.User = user
	}
	if password := os.Getenv(prefix + "_PASSWORD"); password != "" {
		c.Password = password
	}
	if database := os.Getenv(prefix + "_NAME"); database != "" {
		c.Database = database
	}
	if sslMode := os.Getenv(prefix + "_SSLMODE"); sslMode != "" {
		c.SSLMode = sslMode
	}
	if maxConns := os.Getenv(prefix + "_MAX_CONNS"); maxConns != "" {
		if n, err := strconv.Atoi(maxConns); err == nil {
			c.MaxConns = n
		}
	}
}

// LoadFromEnv overrides fields from <prefix>_ADDR, <prefix>_PASSWORD, <prefix>_DB.
func (c *RedisConfig) LoadFromEnv(prefix string) {
	if addr := os.Getenv(prefix + "_ADDR"); addr != "" {
		c.Addr = addr
	}
	if password := os.Getenv(prefix + "_PASSWORD"); password != "" {
		c.Password = password
	}
	if db := os.Getenv(prefix + "_DB"); db != "" {
		if n, err := strconv.Atoi(db); err == nil {
			c.DB = n
		}
	}
}

// LoadFromEnv overrides fields from <prefix>_BROKER, <prefix>_CLIENT_ID, ...
func (c *MQTTConfig) LoadFromEnv(prefix string) {
	if broker := os.Getenv(prefix + "_BROKER"); broker != "" {
		c.Broker = broker
	}
	if clientID := os.Getenv(prefix + "_CLIENT_ID"); clientID != "" {
		c.ClientID = clientID
	}
	if username := os.Getenv(prefix + "_USERNAME"); username != "" {
		c.Username = username
	}
	if password := os.Getenv(prefix + "_PASSWORD"); password != "" {
		c.Password = password
	}
	if qos := os.Getenv(prefix + "_QOS"); qos != "" {
		if n, err := strconv.Atoi(qos); err == nil && n >= 0 && n <= 2 {
			c.QoS = byte(n)
		}
	}
}

// LoadFromEnv overrides fields from <prefix>_URL and <prefix>_NAME.
func (c *NATSConfig) LoadFromEnv(prefix string) {
	if url := os.Getenv(prefix + "_URL"); url != "" {
		c.URL = url
	}
	if name := os.Getenv(prefix + "_NAME"); name != "" {
		c.Name = name
	}
}
