package k1pro

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config carries the device selectors and protocol timing constants.
// It is passed by value at construction and never mutated afterwards.
type Config struct {
	VendorID  uint16
	ProductID uint16

	// The two logical endpoints share VID/PID and are told apart by
	// HID usage under this usage page.
	UsagePage    uint16
	ControlUsage uint16
	EventUsage   uint16

	InterCommandDelay time.Duration // between handshake commands
	SettleDelay       time.Duration // after CPOS and the handshake terminator
	PacketDelay       time.Duration // between image upload packets
	RefreshPeriod     time.Duration // full image-cache re-send cadence
	HeartbeatPeriod   time.Duration // CONNECT cadence
	PollTimeout       time.Duration // event read wait budget

	OpenRetries    int
	OpenRetryDelay time.Duration
}

// DefaultConfig returns the documented constants for the k1-pro.
func DefaultConfig() Config {
	return Config{
		VendorID:  0x5548,
		ProductID: 0x1025,

		UsagePage:    0xFFA0,
		ControlUsage: 0x0001,
		EventUsage:   0x0002,

		InterCommandDelay: time.Millisecond,
		SettleDelay:       2 * time.Millisecond,
		PacketDelay:       10 * time.Millisecond,
		RefreshPeriod:     50 * time.Millisecond,
		HeartbeatPeriod:   10 * time.Second,
		PollTimeout:       100 * time.Millisecond,

		OpenRetries:    5,
		OpenRetryDelay: 100 * time.Millisecond,
	}
}

// Duration is a time.Duration that unmarshals from YAML strings such as
// "50ms" or "10s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// fileConfig mirrors Config for YAML decoding. Zero-valued fields keep
// their defaults.
type fileConfig struct {
	VendorID  uint16 `yaml:"vendor_id"`
	ProductID uint16 `yaml:"product_id"`

	UsagePage    uint16 `yaml:"usage_page"`
	ControlUsage uint16 `yaml:"control_usage"`
	EventUsage   uint16 `yaml:"event_usage"`

	InterCommandDelay Duration `yaml:"inter_command_delay"`
	SettleDelay       Duration `yaml:"settle_delay"`
	PacketDelay       Duration `yaml:"packet_delay"`
	RefreshPeriod     Duration `yaml:"refresh_period"`
	HeartbeatPeriod   Duration `yaml:"heartbeat_period"`
	PollTimeout       Duration `yaml:"poll_timeout"`

	OpenRetries    int      `yaml:"open_retries"`
	OpenRetryDelay Duration `yaml:"open_retry_delay"`
}

// LoadConfig reads YAML overrides on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg := DefaultConfig()
	if fc.VendorID != 0 {
		cfg.VendorID = fc.VendorID
	}
	if fc.ProductID != 0 {
		cfg.ProductID = fc.ProductID
	}
	if fc.UsagePage != 0 {
		cfg.UsagePage = fc.UsagePage
	}
	if fc.ControlUsage != 0 {
		cfg.ControlUsage = fc.ControlUsage
	}
	if fc.EventUsage != 0 {
		cfg.EventUsage = fc.EventUsage
	}
	if fc.InterCommandDelay != 0 {
		cfg.InterCommandDelay = time.Duration(fc.InterCommandDelay)
	}
	if fc.SettleDelay != 0 {
		cfg.SettleDelay = time.Duration(fc.SettleDelay)
	}
	if fc.PacketDelay != 0 {
		cfg.PacketDelay = time.Duration(fc.PacketDelay)
	}
	if fc.RefreshPeriod != 0 {
		cfg.RefreshPeriod = time.Duration(fc.RefreshPeriod)
	}
	if fc.HeartbeatPeriod != 0 {
		cfg.HeartbeatPeriod = time.Duration(fc.HeartbeatPeriod)
	}
	if fc.PollTimeout != 0 {
		cfg.PollTimeout = time.Duration(fc.PollTimeout)
	}
	if fc.OpenRetries != 0 {
		cfg.OpenRetries = fc.OpenRetries
	}
	if fc.OpenRetryDelay != 0 {
		cfg.OpenRetryDelay = time.Duration(fc.OpenRetryDelay)
	}
	return cfg, nil
}
