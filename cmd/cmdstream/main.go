// Command cmdstream feeds URLs and files, one after another, into the stdin
// of a single long-running command.
//
//	cmdstream [flags] -- command [args...]
//
// Example:
//
//	cmdstream --source https://example.com/a.ts --source ./b.ts -- ffmpeg -i pipe:0 out.mp4
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/kbukum/cmdstream/httpclient"
	"github.com/kbukum/cmdstream/logger"
	"github.com/kbukum/cmdstream/observability"
	"github.com/kbukum/cmdstream/process"
	"github.com/kbukum/cmdstream/resolver"
	"github.com/kbukum/cmdstream/splice"
	"github.com/kbukum/cmdstream/version"
)

const (
	exitUsage    = 2
	exitFailure  = 1
	flushTimeout = 5 * time.Second
	meterName    = "github.com/kbukum/cmdstream/splice"
)

type cliOptions struct {
	flags       *pflag.FlagSet
	configFile  string
	showVersion bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func newFlagSet(stderr io.Writer) *cliOptions {
	fs := pflag.NewFlagSet(serviceName, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.SetInterspersed(false)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: %s [flags] -- command [args...]\n\nFlags:\n", serviceName)
		fs.PrintDefaults()
	}

	opts := &cliOptions{flags: fs}
	fs.StringVarP(&opts.configFile, "config", "c", "", "config file (default: search ./cmd/cmdstream, ./config, .)")
	fs.BoolVar(&opts.showVersion, "version", false, "print version and exit")

	fs.StringArrayP("source", "s", nil, "source URL or path; repeatable")
	fs.String("sources", "", "file with one source per line, - for stdin")
	fs.Bool("defer", false, "queue every source before consuming the first")
	fs.Bool("debug", false, "debug logging")
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	fs.String("log-format", "", "log format (console, json)")
	fs.String("dir", "", "working directory of the command")
	fs.Duration("grace-period", 0, "wait between SIGTERM and SIGKILL")
	fs.Duration("http-timeout", 0, "timeout for connecting and response headers")
	fs.Bool("follow-redirects", false, "follow HTTP redirects")
	fs.Bool("tracing", false, "export traces over OTLP/HTTP")
	fs.Bool("metrics", false, "export metrics over OTLP/HTTP")
	fs.String("otlp-endpoint", "", "OTLP/HTTP endpoint host:port")
	fs.Int("event-buffer", 0, "capacity of the engine event channel")
	return opts
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts := newFlagSet(stderr)
	if err := opts.flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return exitUsage
	}
	if opts.showVersion {
		fmt.Fprintln(stdout, version.Line(serviceName))
		return 0
	}

	cfg, err := loadConfig(*opts, opts.flags.Args())
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", serviceName, err)
		return exitUsage
	}

	sources := cfg.Sources
	if cfg.SourcesFile != "" {
		more, err := readSources(cfg.SourcesFile, stdin)
		if err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", serviceName, err)
			return exitUsage
		}
		sources = append(sources, more...)
	}

	logger.Init(&cfg.Logging)
	log := logger.WithComponent("cli")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := observability.Setup(ctx, cfg.Observability, cfg.Name, version.GetShortVersion(), cfg.Environment)
	if err != nil {
		log.Error("observability setup failed", logger.ErrorFields("setup", err))
		return exitFailure
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			log.Warn("observability shutdown failed", logger.ErrorFields("shutdown", err))
		}
	}()

	exit, err := spliceSources(ctx, cfg, sources, stdout, stderr, log)
	if err != nil {
		log.Error("cmdstream failed", logger.ErrorFields("run", err))
		return exitFailure
	}
	if exit.Code < 0 {
		return exitFailure
	}
	return exit.Code
}

// spliceSources runs the command with the engine, submits every source and
// waits for the command to exit.
func spliceSources(ctx context.Context, cfg *Config, sources []string, stdout, stderr io.Writer, log *logger.Logger) (process.Exit, error) {
	client, err := httpclient.New(cfg.HTTP)
	if err != nil {
		return process.Exit{}, err
	}
	base := logger.GetGlobalLogger()
	res, err := resolver.NewDefault(resolver.WithHTTPClient(client), resolver.WithLogger(base))
	if err != nil {
		return process.Exit{}, err
	}
	metrics, err := observability.NewSpliceMetrics(observability.Meter(meterName))
	if err != nil {
		return process.Exit{}, err
	}

	cmd := cfg.Process
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	opts := []splice.Option{
		splice.WithResolver(res),
		splice.WithLogger(base),
		splice.WithMetrics(metrics),
		splice.WithObserver(reportFailures(log)),
	}
	if cfg.EventBuffer > 0 {
		opts = append(opts, splice.WithEventBuffer(cfg.EventBuffer))
	}

	eng, err := splice.Spawn(ctx, cmd, opts...)
	if err != nil {
		return process.Exit{}, err
	}

	submit := eng.Submit
	if cfg.Defer {
		submit = eng.SubmitDeferred
	}
	for _, src := range sources {
		if err := submit(src); err != nil {
			log.Warn("source not queued", logger.Fields("source", src, logger.FieldError, err.Error()))
			break
		}
	}
	if err := eng.EndSubmissions(); err != nil {
		log.Warn("input not ended", logger.ErrorFields("end_submissions", err))
	}

	return eng.Wait(context.Background())
}

// reportFailures logs sources that could not be spliced; the command keeps
// running with the next one.
func reportFailures(log *logger.Logger) splice.Observer {
	return splice.ObserverFunc(func(ev splice.Event) {
		if ev.Type != splice.EventError {
			return
		}
		log.Warn("source skipped", logger.Fields(
			logger.FieldSeq, ev.Seq,
			"source", fmt.Sprint(ev.Item),
			logger.FieldError, ev.Err.Error(),
		))
	})
}
