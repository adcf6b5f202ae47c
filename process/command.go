package process

import (
	"io"
	"strings"
	"time"

	"github.com/kbukum/cmdstream/errors"
	"github.com/kbukum/cmdstream/logger"
)

// DefaultGracePeriod is the SIGTERM to SIGKILL delay used when Command.GracePeriod is zero.
const DefaultGracePeriod = 5 * time.Second

// Command configures a long-running subprocess.
type Command struct {
	// Binary is the executable path or name (resolved via PATH).
	Binary string `yaml:"binary" mapstructure:"binary"`
	// Args are the command-line arguments.
	Args []string `yaml:"args" mapstructure:"args"`
	// Dir is the working directory. If empty, uses the current directory.
	Dir string `yaml:"dir" mapstructure:"dir"`
	// Env is additional environment variables (key=value). Merged with os.Environ.
	Env []string `yaml:"env" mapstructure:"env"`
	// Stdout receives the process output unchanged. When nil, Handle.Stdout
	// returns a reader the caller must consume.
	Stdout io.Writer `yaml:"-" mapstructure:"-"`
	// Stderr receives the process diagnostics unchanged. When nil,
	// Handle.Stderr returns a reader the caller must consume.
	Stderr io.Writer `yaml:"-" mapstructure:"-"`
	// GracePeriod is how long to wait after SIGTERM before SIGKILL.
	// Defaults to 5 seconds if zero.
	GracePeriod time.Duration `yaml:"grace_period" mapstructure:"grace_period"`
	// Logger receives start and exit records. Nil discards them.
	Logger *logger.Logger `yaml:"-" mapstructure:"-"`
}

// Validate reports a ConfigError when the command cannot possibly start.
func (c *Command) Validate() error {
	if strings.TrimSpace(c.Binary) == "" {
		return errors.ConfigError("binary", "command must be a non-empty executable name")
	}
	if c.GracePeriod < 0 {
		return errors.ConfigError("grace_period", "must not be negative")
	}
	return nil
}

func (c *Command) gracePeriod() time.Duration {
	if c.GracePeriod == 0 {
		return DefaultGracePeriod
	}
	return c.GracePeriod
}

// String renders the command line for logs.
func (c *Command) String() string {
	if len(c.Args) == 0 {
		return c.Binary
	}
	return c.Binary + " " + strings.Join(c.Args, " ")
}
