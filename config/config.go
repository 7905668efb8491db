// Package config resolves the library's table-driven configuration:
// parse once at startup from whatever external key/value lookup the
// caller supplies (environment, file, service discovery — outside this
// library's scope), keep hot fields pre-parsed instead of re-resolving
// on every read.
package config

import (
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/feedcore/client/cmn/nlog"
)

// Lookup is the external configuration source the core consumes: any
// map-like key/value provider.
type Lookup interface {
	// Get returns the raw string value for key, or ok=false if unset.
	Get(key string) (string, bool)
}

// MapLookup is the simplest Lookup: a plain map.
type MapLookup map[string]string

func (m MapLookup) Get(key string) (string, bool) { v, ok := m[key]; return v, ok }

// Config is the resolved, read-mostly configuration for one connection.
type Config struct {
	Network struct {
		// HeartbeatPeriod is the server-side heartbeat interval; the
		// client's own outbound cadence is fixed at 60s and does not
		// read this knob.
		HeartbeatPeriod        time.Duration
		HeartbeatTimeout       time.Duration
		ReestablishConnections bool
	}
	Subscriptions struct {
		DisableLastEventStorage bool
	}
	LogLevel nlog.Level
	Dump     bool
}

// Default returns the library's built-in default configuration.
func Default() *Config {
	c := &Config{}
	c.Network.HeartbeatPeriod = 10 * time.Second
	c.Network.HeartbeatTimeout = 120 * time.Second
	c.Network.ReestablishConnections = true
	c.Subscriptions.DisableLastEventStorage = true
	c.LogLevel = nlog.LevelInfo
	c.Dump = false
	return c
}

// Load resolves a Config from a Lookup, falling back to Default() for
// every key that is absent or unparsable. Values are decoded via
// json-iterator so numeric/bool keys can be supplied as bare strings
// ("10", "true") the way a flat property file would provide them.
func Load(l Lookup) *Config {
	c := Default()
	if l == nil {
		return c
	}
	if v, ok := l.Get("network.heartbeatPeriod"); ok {
		if secs, perr := parseSeconds(v); perr == nil {
			c.Network.HeartbeatPeriod = secs
		}
	}
	if v, ok := l.Get("network.heartbeatTimeout"); ok {
		if secs, perr := parseSeconds(v); perr == nil {
			c.Network.HeartbeatTimeout = secs
		}
	}
	if v, ok := l.Get("network.reestablishConnections"); ok {
		if b, perr := parseBool(v); perr == nil {
			c.Network.ReestablishConnections = b
		}
	}
	if v, ok := l.Get("subscriptions.disableLastEventStorage"); ok {
		if b, perr := parseBool(v); perr == nil {
			c.Subscriptions.DisableLastEventStorage = b
		}
	}
	if v, ok := l.Get("logger.level"); ok {
		c.LogLevel = parseLevel(v)
	}
	if v, ok := l.Get("dump"); ok {
		if b, perr := parseBool(v); perr == nil {
			c.Dump = b
		}
	}
	if c.Dump {
		nlog.Infof("resolved config: %+v", c)
	}
	return c
}

func parseSeconds(s string) (time.Duration, error) {
	var secs float64
	if err := jsoniter.UnmarshalFromString(s, &secs); err != nil {
		return 0, err
	}
	return time.Duration(secs * float64(time.Second)), nil
}

func parseBool(s string) (bool, error) {
	var b bool
	if err := jsoniter.UnmarshalFromString(s, &b); err != nil {
		return false, err
	}
	return b, nil
}

func parseLevel(s string) nlog.Level {
	switch s {
	case "warn", "warning":
		return nlog.LevelWarn
	case "error":
		return nlog.LevelError
	default:
		return nlog.LevelInfo
	}
}
