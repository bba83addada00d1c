// Package gateway implements the HTTP surface: routing, the access control
// and validation middleware chain, and the mapping from classified errors
// to HTTP responses.
package gateway

import (
	"fmt"
	"time"

	"github.com/piyushkb/WhastapWeb/errors"
)

// Config defines the HTTP surface configuration.
type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	// MaxRequestSize bounds request bodies in bytes.
	MaxRequestSize int64
}

// DefaultConfig returns the default HTTP surface configuration.
//
// WriteTimeout defaults to zero because a session start with an unbounded
// pairing wait can legitimately hold its response open indefinitely.
func DefaultConfig() Config {
	return Config{
		Addr:            ":3000",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    0,
		ShutdownTimeout: 10 * time.Second,
		MaxRequestSize:  1024 * 1024,
	}
}

// Validate checks the configuration and applies defaults.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.WrapInvalid(fmt.Errorf("addr is required"), "Config", "Validate", "addr check")
	}
	if c.MaxRequestSize < 0 {
		return errors.WrapInvalid(fmt.Errorf("max request size must not be negative"),
			"Config", "Validate", "request size check")
	}
	if c.MaxRequestSize == 0 {
		c.MaxRequestSize = 1024 * 1024
	}
	if c.MaxRequestSize > 100*1024*1024 {
		return errors.WrapInvalid(fmt.Errorf("max request size exceeds 100MB limit"),
			"Config", "Validate", "request size check")
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	return nil
}
