// Copyright The Telegen Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the classprof YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/platformbuilds/classprof/internal/classify"
)

const (
	FormatText       = "text"
	FormatPrometheus = "prometheus"

	ProtocolHTTP = "http"
	ProtocolGRPC = "grpc"
)

type Config struct {
	Thresholds classify.Thresholds `yaml:"thresholds"`
	Parse      struct {
		Strict bool `yaml:"strict"`
	} `yaml:"parse"`
	Output struct {
		Format string `yaml:"format"`
		Top    int    `yaml:"top"`
		// Scope of the hot-site listing: all, virtual or interface.
		TopScope string `yaml:"top_scope"`
	} `yaml:"output"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Metrics struct {
		Namespace string `yaml:"namespace"`
	} `yaml:"metrics"`
	Tracing Tracing `yaml:"tracing"`
}

// Tracing configures OTLP span export. Empty Endpoint disables it.
type Tracing struct {
	Endpoint    string            `yaml:"endpoint"`
	Protocol    string            `yaml:"protocol"`
	Insecure    bool              `yaml:"insecure"`
	Headers     map[string]string `yaml:"headers"`
	ServiceName string            `yaml:"service_name"`
	TimeoutStr  string            `yaml:"timeout"`
}

func (t Tracing) Enabled() bool { return t.Endpoint != "" }

// Timeout is the export timeout, zero when unset or invalid.
func (t Tracing) Timeout() time.Duration { d, _ := time.ParseDuration(t.TimeoutStr); return d }

// Default returns the configuration used when no file is given.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	def := classify.DefaultThresholds()
	if c.Thresholds.Predictable == 0 {
		c.Thresholds.Predictable = def.Predictable
	}
	if c.Thresholds.Marginal == 0 {
		c.Thresholds.Marginal = def.Marginal
	}
	if c.Output.Format == "" {
		c.Output.Format = FormatText
	}
	if c.Output.TopScope == "" {
		c.Output.TopScope = "all"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "classprof"
	}
	if c.Tracing.Protocol == "" {
		c.Tracing.Protocol = ProtocolHTTP
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "classprof"
	}
}

// Validate checks the values flags and files can get wrong.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Thresholds.Validate(); err != nil {
		errs = append(errs, err)
	}
	switch c.Output.Format {
	case FormatText, FormatPrometheus:
	default:
		errs = append(errs, fmt.Errorf("output.format: unknown format %q", c.Output.Format))
	}
	if c.Output.Top < 0 {
		errs = append(errs, fmt.Errorf("output.top: must not be negative, got %d", c.Output.Top))
	}
	if _, err := classify.ParseScope(c.Output.TopScope); err != nil {
		errs = append(errs, fmt.Errorf("output.top_scope: %w", err))
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch c.Tracing.Protocol {
	case ProtocolHTTP, ProtocolGRPC:
	default:
		errs = append(errs, fmt.Errorf("tracing.protocol: unknown protocol %q", c.Tracing.Protocol))
	}
	return errors.Join(errs...)
}

// Load reads path, applies defaults and validates the result.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &c, nil
}
