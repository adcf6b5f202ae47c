package main

import (
	"fmt"

	"github.com/kbukum/cmdstream/config"
	"github.com/kbukum/cmdstream/httpclient"
	"github.com/kbukum/cmdstream/observability"
	"github.com/kbukum/cmdstream/process"
	"github.com/kbukum/cmdstream/validation"
)

const (
	serviceName = "cmdstream"
	envPrefix   = "CMDSTREAM"
)

// Config is the CLI configuration. Every key can come from config.yml,
// a CMDSTREAM_-prefixed environment variable or a flag.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Process       process.Command      `yaml:"process" mapstructure:"process"`
	HTTP          httpclient.Config    `yaml:"http" mapstructure:"http"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`

	// Sources are submitted before the lines of SourcesFile.
	Sources     []string `yaml:"sources" mapstructure:"sources"`
	SourcesFile string   `yaml:"sources_file" mapstructure:"sources_file"`
	// Defer queues every source before the first one is consumed.
	Defer       bool `yaml:"defer" mapstructure:"defer"`
	EventBuffer int  `yaml:"event_buffer" mapstructure:"event_buffer" validate:"gte=0"`
}

func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = serviceName
	}
	c.ServiceConfig.ApplyDefaults()
	c.HTTP.ApplyDefaults()
	c.Observability.ApplyDefaults()
}

func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Process.Validate(); err != nil {
		return err
	}
	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("config.http: %w", err)
	}
	return validation.Validate(c)
}

// flagKeys maps CLI flag names to config keys.
var flagKeys = map[string]string{
	"source":           "sources",
	"sources":          "sources_file",
	"defer":            "defer",
	"debug":            "debug",
	"log-level":        "logging.level",
	"log-format":       "logging.format",
	"grace-period":     "process.grace_period",
	"dir":              "process.dir",
	"http-timeout":     "http.timeout",
	"follow-redirects": "http.follow_redirects",
	"tracing":          "observability.tracing",
	"metrics":          "observability.metrics",
	"otlp-endpoint":    "observability.endpoint",
	"event-buffer":     "event_buffer",
	// read before loading
	"config":  "",
	"version": "",
}

// loadConfig loads the configuration and takes the command from argv when
// one is given after the flags.
func loadConfig(opts cliOptions, argv []string) (*Config, error) {
	loaderOpts := []config.LoaderOption{
		config.WithEnvPrefix(envPrefix),
		config.WithFlags(opts.flags, flagKeys),
	}
	if opts.configFile != "" {
		loaderOpts = append(loaderOpts, config.WithConfigFile(opts.configFile))
	}

	var cfg Config
	if err := config.LoadConfig(serviceName, &cfg, loaderOpts...); err != nil {
		return nil, err
	}
	if len(argv) > 0 {
		cfg.Process.Binary = argv[0]
		cfg.Process.Args = argv[1:]
	}
	if err := config.Finalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
