// Package config holds the daemon's configuration surface (spec §6):
// listener binds, thread/byte/player limits, and world maintenance
// timing. It follows cc-backend's config.Keys convention — a
// package-level struct with defaults, optionally overridden by a JSON
// file loaded at startup.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Config is the full set of daemon-tunable values named in spec §6.
type Config struct {
	// Binds lists the TCP addresses the connection handler listens on.
	Binds []string `json:"binds"`

	// NumThreads sizes the application worker pool dispatching
	// OnReceive/OnConnect/OnDisconnect callbacks (internal/netio.Handler).
	NumThreads int `json:"num_threads"`

	// MaxBytes is the per-connection send-queue backpressure cap; a Send
	// that would exceed it fails immediately and disconnects the peer.
	MaxBytes int `json:"max_bytes"`

	// MaxPlayers caps the connections the handler admits (0 = unlimited);
	// a socket arriving at the cap is closed before a session is created.
	MaxPlayers int `json:"max_players"`

	// WorldUnloadInterval is how often the maintenance pass sweeps
	// loaded columns for save+evict.
	WorldUnloadInterval time.Duration `json:"world_unload_interval"`

	// TickLength is the server's logical tick period (world time/age
	// advance and the time_update broadcast).
	TickLength time.Duration `json:"tick_length"`

	// TickThreshold is how many consecutive overrun ticks are tolerated
	// before the server logs a stall warning.
	TickThreshold int `json:"tick_threshold"`

	// OfflineFreeze, when true, stops the world age/time-of-day counter
	// advancing while no client is Authenticated.
	OfflineFreeze bool `json:"offline_freeze"`
}

// Keys is the process-wide configuration, populated with defaults and
// optionally overridden by Init.
var Keys = Config{
	Binds:               []string{":25565"},
	NumThreads:          10,
	MaxBytes:            1 << 20,
	MaxPlayers:          20,
	WorldUnloadInterval: 30 * time.Second,
	TickLength:          50 * time.Millisecond,
	TickThreshold:       10,
	OfflineFreeze:       true,
}

// Init loads path as JSON over the defaults in Keys. A missing file is
// not an error — the daemon runs on defaults.
func Init(path string) error {
	if path == "" {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&Keys); err != nil {
		return fmt.Errorf("config: decode %s: %w", path, err)
	}
	if len(Keys.Binds) == 0 {
		return fmt.Errorf("config: at least one bind address required")
	}
	return nil
}
