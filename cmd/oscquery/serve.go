package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/plml/oscquery-go/pkg/config"
	"github.com/plml/oscquery-go/pkg/log"
	"github.com/plml/oscquery-go/pkg/params"
	"github.com/plml/oscquery-go/pkg/service"
	"github.com/plml/oscquery-go/pkg/tree"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run an OSCQuery server",
	Long: `Serves a parameter tree. Parameters come from the built-in demo set
(--demo) and/or YAML manifests (--params). Settings are read from --config
(YAML or TOML); flags given on the command line win over the file.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addServeFlags(serveCmd.Flags())
}

func addServeFlags(f *pflag.FlagSet) {
	f.String("config", "", "Configuration file (.yaml, .yml or .toml)")
	f.String("name", "oscquery", "Service name (mDNS instance and host info NAME)")
	f.String("query-addr", fmt.Sprintf(":%d", service.DefaultQueryPort), "HTTP listen address")
	f.String("control-addr", fmt.Sprintf(":%d", service.DefaultControlPort), "UDP control listen address")
	f.String("metrics-addr", "", "Serve Prometheus metrics on this address")
	f.String("interface", "", "Restrict mDNS to one network interface")
	f.Bool("no-discovery", false, "Do not advertise over mDNS")
	f.Bool("strict-discovery", false, "Fail when a service name is already advertised")
	f.Bool("demo", false, "Register the built-in demo parameters")
	f.StringSlice("params", nil, "Parameter manifest files")
	f.String("protocol-log", "", "Write protocol events to this file (.olog)")
	f.BoolP("interactive", "i", false, "Open an interactive console")
}

// serveOptions are the settings not carried by service.Config.
type serveOptions struct {
	demo        bool
	params      []string
	protocolLog string
	level       slog.Level
}

func runServe(cmd *cobra.Command, _ []string) error {
	svcConfig, opts, err := serveConfig(cmd)
	if err != nil {
		return err
	}

	interactive, _ := cmd.Flags().GetBool("interactive")
	var console *Console
	logOut := io.Writer(os.Stderr)
	if interactive {
		if console, err = NewConsole(); err != nil {
			return err
		}
		defer console.Close()
		// Log lines must not tear the prompt.
		logOut = console.Stderr()
	}

	logger := newLogger(logOut, opts.level)
	slog.SetDefault(logger)
	svcConfig.Logger = logger

	if opts.protocolLog != "" {
		fl, err := log.NewFileLogger(opts.protocolLog)
		if err != nil {
			return fmt.Errorf("open protocol log: %w", err)
		}
		defer fl.Close()
		svcConfig.ProtocolLogger = fl
	}

	if svcConfig.MetricsAddress != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		svcConfig.Registerer = reg
	}

	t, err := buildTree(opts)
	if err != nil {
		return err
	}
	logger.Info("parameters registered", "nodes", t.Len())

	srv, err := service.New(t, svcConfig)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if console == nil {
		return srv.Run(ctx)
	}

	console.Attach(srv)
	if err := srv.Start(ctx); err != nil {
		return err
	}

	consoleCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	console.Run(consoleCtx, cancel)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), svcConfig.ShutdownTimeout)
	defer stopCancel()
	return srv.Stop(stopCtx)
}

// serveConfig merges defaults, the config file and explicit flags.
func serveConfig(cmd *cobra.Command) (service.Config, serveOptions, error) {
	c := service.DefaultConfig()
	flags := cmd.Flags()

	levelName, levelSet := "info", false
	if f := cmd.Flag("log-level"); f != nil {
		levelName, levelSet = f.Value.String(), f.Changed
	}
	level, err := parseLevel(levelName)
	if err != nil {
		return c, serveOptions{}, err
	}
	opts := serveOptions{level: level}

	if path, _ := flags.GetString("config"); path != "" {
		file, err := config.Load(path)
		if err != nil {
			return c, opts, err
		}
		if err := file.Apply(&c); err != nil {
			return c, opts, err
		}
		if !levelSet {
			if opts.level, err = file.Level(opts.level); err != nil {
				return c, opts, err
			}
		}
		if file.Demo != nil {
			opts.demo = *file.Demo
		}
		if file.ProtocolLog != nil {
			opts.protocolLog = *file.ProtocolLog
		}
		opts.params = file.Params
	}

	if flags.Changed("name") {
		c.ServiceName, _ = flags.GetString("name")
	}
	if flags.Changed("query-addr") {
		c.QueryAddress, _ = flags.GetString("query-addr")
	}
	if flags.Changed("control-addr") {
		c.ControlAddress, _ = flags.GetString("control-addr")
	}
	if flags.Changed("metrics-addr") {
		c.MetricsAddress, _ = flags.GetString("metrics-addr")
	}
	if flags.Changed("interface") {
		c.Interface, _ = flags.GetString("interface")
	}
	if flags.Changed("no-discovery") {
		c.DisableDiscovery, _ = flags.GetBool("no-discovery")
	}
	if flags.Changed("strict-discovery") {
		c.StrictDiscovery, _ = flags.GetBool("strict-discovery")
	}
	if flags.Changed("demo") {
		opts.demo, _ = flags.GetBool("demo")
	}
	if flags.Changed("params") {
		opts.params, _ = flags.GetStringSlice("params")
	}
	if flags.Changed("protocol-log") {
		opts.protocolLog, _ = flags.GetString("protocol-log")
	}

	return c, opts, c.Validate()
}

// buildTree registers the requested manifests in order.
func buildTree(opts serveOptions) (*tree.Tree, error) {
	t := tree.New()
	if opts.demo {
		m, err := params.Load(params.Demo)
		if err != nil {
			return nil, err
		}
		if err := m.Register(t); err != nil {
			return nil, err
		}
	}
	for _, path := range opts.params {
		m, err := params.LoadFile(path)
		if err != nil {
			return nil, err
		}
		if err := m.Register(t); err != nil {
			return nil, err
		}
	}
	return t, nil
}
