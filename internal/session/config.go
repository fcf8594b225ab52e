package session

import "time"

// Config is the caller-supplied configuration for one stream session,
// matching the create-stream request body in the REST control plane.
type Config struct {
	MPDURL            string
	Key               string
	KID               string
	KeyMap            map[string]string
	Mp4decryptPath    string
	RepresentationID  string
	Label             string
	PollInterval      time.Duration
	WindowSize        int
	HistorySize       int
	Headers           map[string]string
	OutputDir         string
	HTTPClientTimeout time.Duration
	SubprocessTimeout time.Duration
}

// Defaults fills zero-valued fields with the gateway's built-in
// defaults: 4s poll interval, 6-segment sliding window, 128-entry
// processed-segment history. WithDefaults lets a caller override these
// baseline values (e.g. from gateway-wide configuration) before they're
// applied.
func (c Config) Defaults() Config {
	return c.WithDefaults(Config{
		PollInterval: 4 * time.Second,
		WindowSize:   6,
		HistorySize:  128,
	})
}

// WithDefaults fills zero-valued fields from defaults.
func (c Config) WithDefaults(defaults Config) Config {
	if c.PollInterval <= 0 {
		c.PollInterval = defaults.PollInterval
	}
	if c.WindowSize <= 0 {
		c.WindowSize = defaults.WindowSize
	}
	if c.HistorySize <= 0 {
		c.HistorySize = defaults.HistorySize
	}
	if c.Mp4decryptPath == "" {
		c.Mp4decryptPath = defaults.Mp4decryptPath
	}
	if c.HTTPClientTimeout <= 0 {
		c.HTTPClientTimeout = defaults.HTTPClientTimeout
	}
	if c.SubprocessTimeout <= 0 {
		c.SubprocessTimeout = defaults.SubprocessTimeout
	}
	return c
}
