package config_test

import (
	"testing"
	"time"

	"github.com/feedcore/client/config"
	"github.com/feedcore/client/internal/tassert"
)

func TestDefaults(t *testing.T) {
	c := config.Default()
	tassert.Fatal(t, c.Network.HeartbeatPeriod == 10*time.Second, "heartbeat period %v", c.Network.HeartbeatPeriod)
	tassert.Fatal(t, c.Network.HeartbeatTimeout == 120*time.Second, "heartbeat timeout %v", c.Network.HeartbeatTimeout)
	tassert.Fatal(t, c.Network.ReestablishConnections, "reconnect defaults on")
	tassert.Fatal(t, c.Subscriptions.DisableLastEventStorage, "last-event storage defaults off")
}

func TestLoadOverrides(t *testing.T) {
	c := config.Load(config.MapLookup{
		"network.heartbeatPeriod":               "30",
		"network.heartbeatTimeout":              "60",
		"network.reestablishConnections":        "false",
		"subscriptions.disableLastEventStorage": "false",
	})
	tassert.Fatal(t, c.Network.HeartbeatPeriod == 30*time.Second, "heartbeat period %v", c.Network.HeartbeatPeriod)
	tassert.Fatal(t, c.Network.HeartbeatTimeout == 60*time.Second, "heartbeat timeout %v", c.Network.HeartbeatTimeout)
	tassert.Fatal(t, !c.Network.ReestablishConnections, "reconnect should be off")
	tassert.Fatal(t, !c.Subscriptions.DisableLastEventStorage, "cache should be on")
}

func TestLoadIgnoresUnparsableValues(t *testing.T) {
	c := config.Load(config.MapLookup{
		"network.heartbeatPeriod":        "not-a-number",
		"network.reestablishConnections": "maybe",
	})
	tassert.Fatal(t, c.Network.HeartbeatPeriod == 10*time.Second, "unparsable values fall back to defaults")
	tassert.Fatal(t, c.Network.ReestablishConnections, "unparsable values fall back to defaults")
}

func TestLoadNilLookup(t *testing.T) {
	c := config.Load(nil)
	tassert.Fatal(t, c.Network.HeartbeatPeriod == 10*time.Second, "nil lookup means pure defaults")
}
