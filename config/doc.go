// Package config loads binary configuration from a YAML file, a .env file,
// the environment and command-line flags, in that order of precedence.
//
// # Usage
//
//	type CLIConfig struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    HTTP httpclient.Config `yaml:"http" mapstructure:"http"`
//	}
//
//	var cfg CLIConfig
//	err := config.Load("cmdstream", &cfg,
//	    config.WithEnvPrefix("CMDSTREAM"),
//	    config.WithFlags(flags, map[string]string{"log-level": "logging.level"}),
//	)
//
// With the CMDSTREAM prefix, CMDSTREAM_HTTP_TIMEOUT=5s sets http.timeout.
package config
