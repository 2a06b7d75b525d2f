package nats

import (
	"time"

	"wisefido-rppg/common/config"

	"github.com/nats-io/nats.go"
)

// Connect dials NATS with unlimited reconnects.
func Connect(cfg *config.NATSConfig) (*nats.Conn, error) {
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	wait := cfg.ReconnectWait
	if wait <= 0 {
		wait = 500 * time.Millisecond
	}
	return nats.Connect(
		cfg.URL,
		nats.Name(cfg.Name),
		nats.Timeout(timeout),
		nats.ReconnectWait(wait),
		nats.MaxReconnects(-1),
	)
}
