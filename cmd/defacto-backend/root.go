package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/vivooifo-droid/defacto-backend/app"
	"github.com/vivooifo-droid/defacto-backend/config"
	"github.com/vivooifo-droid/defacto-backend/logging"
	"github.com/vivooifo-droid/defacto-backend/version"
)

type rootOptions struct {
	configPath  string
	debug       bool
	noColor     bool
	showVersion bool

	v *viper.Viper
}

// NewRootCmd creates the root command for defacto-backend
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{v: config.NewViper()}
	defaults := config.Default()

	rootCmd := &cobra.Command{
		Use:   version.AppName,
		Short: version.Description,
		Long: fmt.Sprintf(`%s - %s

Serves JSON over HTTP/1.1 on 127.0.0.1. Settings come from, in order of
precedence: flags, %s_* environment variables, the config file, defaults.
`, version.AppName, version.Description, config.EnvPrefix),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.showVersion {
				fmt.Fprintln(cmd.OutOrStdout(), version.Info())
				return nil
			}
			return runServer(cmd, opts)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "Specify configuration file path")
	pf.IntP("port", "p", defaults.Server.Port, "Port to listen on (0 picks a free port)")
	pf.String("log-level", defaults.Logging.Level, "Log level (trace, debug, info, warn, error)")
	pf.String("log-format", defaults.Logging.Format, "Log format (human, json)")
	pf.String("log-file", "", "Also write JSON logs to this file, rotated")
	pf.BoolVarP(&opts.debug, "debug", "d", false, "Enable debug logging")
	pf.BoolVar(&opts.noColor, "no-color", false, "Disable color output")
	rootCmd.Flags().BoolVarP(&opts.showVersion, "version", "v", false, "Display version information")

	bindFlags(opts.v, pf)

	rootCmd.AddCommand(newConfigCmd(opts), newRoutesCmd(opts))
	return rootCmd
}

// bindFlags lets flags override the matching config keys when set.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) {
	for key, flag := range map[string]string{
		"server.port":    "port",
		"logging.level":  "log-level",
		"logging.format": "log-format",
		"logging.file":   "log-file",
	} {
		// only fails for a nil flag
		_ = v.BindPFlag(key, fs.Lookup(flag))
	}
}

// load resolves the effective configuration.
func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.v, o.configPath)
	if err != nil {
		return nil, err
	}
	if o.debug {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

func runServer(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := opts.load()
	if err != nil {
		return err
	}

	if opts.noColor {
		color.NoColor = true
	}

	logger, closer, err := logging.New(cfg.Logging, cmd.ErrOrStderr(), opts.noColor)
	if err != nil {
		return err
	}
	defer closer.Close()
	logging.SetGlobal(logger)

	a := app.New(cfg, logger)
	if err := registerRoutes(a); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, a, cmd.OutOrStdout())
}

// serve binds, prints the banner and blocks until ctx is done.
func serve(ctx context.Context, a *app.App, out io.Writer) error {
	ln, err := a.Listen(ctx)
	if err != nil {
		return err
	}
	printBanner(out, ln.Addr().String(), a)

	err = a.Serve(ctx, ln)

	logger := logging.WithComponent("cmd")
	logger.Info().Msg("shutting down")
	logger.Debug().Msg(a.Engine().StatsText())
	return err
}

func printBanner(out io.Writer, addr string, a *app.App) {
	title := color.New(color.FgGreen, color.Bold)
	dim := color.New(color.Faint)

	title.Fprintf(out, "✅ %s %s listening on http://%s\n", version.Name, version.Version, addr)
	for _, r := range a.Engine().Routes() {
		fmt.Fprintf(out, "   %s %s\n", color.CyanString("%-4s", r.Method), r.Path)
	}
	dim.Fprintln(out, "   press Ctrl+C to stop")
}

func newConfigCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			out, err := cfg.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func newRoutesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "List the routes the server registers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			a := app.New(cfg, logging.GetLogger())
			if err := registerRoutes(a); err != nil {
				return err
			}
			for _, r := range a.Engine().Routes() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-4s %s\n", r.Method, r.Path)
			}
			return nil
		},
	}
}
