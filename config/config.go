// Package config loads the listener configuration from a JSON file with
// DLMSPUSH_* environment overrides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/cybroslabs/dlms-push-listener/base"
	"go.uber.org/zap"
	"k8s.io/utils/ptr"
)

const (
	DefaultFile = "config.json"
	DefaultPort = 4059
	EnvPrefix   = "DLMSPUSH_"
)

// Duration is a time.Duration stored as "30s", "5m" etc.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration has to be a string: %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

type Config struct {
	SaveDataDir string `json:"save_data_dir"`
	LoadDataDir string `json:"load_data_dir"`
	LogDir      string `json:"log_dir,omitempty"` // empty disables the operator log file

	Host         string `json:"host,omitempty"`
	TCPPorts     []int  `json:"tcp_ports"`
	UDPPorts     []int  `json:"udp_ports"`
	SerialDevice string `json:"serial_device,omitempty"`
	SerialBaud   int    `json:"serial_baud,omitempty"`

	DeviationMinutes *int16   `json:"deviation_minutes,omitempty"` // nil means -180
	FCSBigEndian     bool     `json:"fcs_big_endian,omitempty"`
	VerifyChecksums  *bool    `json:"verify_checksums,omitempty"` // nil means true
	TCPIdleTimeout   Duration `json:"tcp_idle_timeout,omitempty"`
}

func Default() *Config {
	return &Config{
		SaveDataDir: ".",
		LoadDataDir: ".",
		TCPPorts:    []int{DefaultPort},
	}
}

// Load reads path over the defaults. A missing file gives the defaults, so does
// a broken one, with a warning.
func Load(path string, logger *zap.SugaredLogger) *Config {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warnf("Could not load config %s: %v", path, err)
		}
		return Default()
	}
	c := Default()
	if err := json.Unmarshal(data, c); err != nil {
		logger.Warnf("Could not load config %s: %v", path, err)
		return Default()
	}
	return c
}

func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("could not save config: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	for _, p := range slices.Concat(c.TCPPorts, c.UDPPorts) {
		if p < 0 || p > 0xffff {
			return fmt.Errorf("%w: port %d out of range", base.ErrInvalidInput, p)
		}
	}
	if c.SerialBaud < 0 {
		return fmt.Errorf("%w: serial baud %d", base.ErrInvalidInput, c.SerialBaud)
	}
	if c.TCPIdleTimeout < 0 {
		return fmt.Errorf("%w: negative tcp idle timeout", base.ErrInvalidInput)
	}
	if len(c.TCPPorts) == 0 && len(c.UDPPorts) == 0 && c.SerialDevice == "" {
		return fmt.Errorf("%w: nothing to listen on", base.ErrInvalidInput)
	}
	return nil
}

func (c *Config) Verify() bool {
	return ptr.Deref(c.VerifyChecksums, true)
}

func (c *Config) Deviation() int16 {
	return ptr.Deref(c.DeviationMinutes, base.DefaultDeviationMinutes)
}

func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.TCPIdleTimeout)
}

func (c *Config) Serial() base.SerialStreamSettings {
	return base.SerialStreamSettings{Device: c.SerialDevice, BaudRate: c.SerialBaud}
}

type envKey struct {
	key string
	set func(c *Config, v string) error
}

var envKeys = []envKey{
	{"save_data_dir", func(c *Config, v string) error { c.SaveDataDir = v; return nil }},
	{"load_data_dir", func(c *Config, v string) error { c.LoadDataDir = v; return nil }},
	{"log_dir", func(c *Config, v string) error { c.LogDir = v; return nil }},
	{"host", func(c *Config, v string) error { c.Host = v; return nil }},
	{"tcp_ports", func(c *Config, v string) (err error) { c.TCPPorts, err = parsePorts(v); return }},
	{"udp_ports", func(c *Config, v string) (err error) { c.UDPPorts, err = parsePorts(v); return }},
	{"serial_device", func(c *Config, v string) error { c.SerialDevice = v; return nil }},
	{"serial_baud", func(c *Config, v string) (err error) { c.SerialBaud, err = strconv.Atoi(v); return }},
	{"deviation_minutes", func(c *Config, v string) error {
		d, err := strconv.ParseInt(v, 10, 16)
		if err != nil {
			return err
		}
		c.DeviationMinutes = ptr.To(int16(d))
		return nil
	}},
	{"fcs_big_endian", func(c *Config, v string) (err error) { c.FCSBigEndian, err = strconv.ParseBool(v); return }},
	{"verify_checksums", func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		c.VerifyChecksums = ptr.To(b)
		return nil
	}},
	{"tcp_idle_timeout", func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		c.TCPIdleTimeout = Duration(d)
		return nil
	}},
}

// EnvOverride applies DLMSPUSH_<KEY> variables found by lookup, os.LookupEnv
// when nil. Values that do not parse are logged and skipped.
func (c *Config) EnvOverride(lookup func(string) (string, bool), logger *zap.SugaredLogger) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	for _, k := range envKeys {
		name := EnvPrefix + strings.ToUpper(k.key)
		v, ok := lookup(name)
		if !ok || v == "" {
			continue
		}
		if err := k.set(c, v); err != nil {
			logger.Warnf("Environment variable %q failed to override %q with value %q: %v", name, k.key, v, err)
			continue
		}
		logger.Infof("Environment variable %q overrides %q with %q", name, k.key, v)
	}
}

func parsePorts(v string) ([]int, error) {
	var r []int
	for _, s := range strings.Split(v, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		p, err := strconv.ParseUint(s, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("bad port %q: %w", s, err)
		}
		r = append(r, int(p))
	}
	return r, nil
}
