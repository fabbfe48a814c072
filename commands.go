package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

const discoverTimeout = 5 * time.Second

// app carries the resolved configuration from the root command to its
// subcommands.
type app struct {
	cfg    Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var (
		dir         string
		targetWidth int
		timeout     time.Duration
		backend     string
		logLevel    string
	)

	root := &cobra.Command{
		Use:           "screencap",
		Short:         "MCP server that captures the screen or a window as PNG",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if dir != "" {
				configDir = dir
			}
			cfg, err := LoadConfig()
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("target-width") {
				cfg.TargetWidth = targetWidth
			}
			if flags.Changed("timeout") {
				cfg.Timeout = timeout
			}
			if flags.Changed("backend") {
				cfg.Backend = backend
			}
			if flags.Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			if flags.Changed("listen") {
				cfg.Listen, _ = flags.GetString("listen")
			}
			if flags.Changed("advertise") {
				cfg.Advertise, _ = flags.GetBool("advertise")
			}

			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			a.cfg = cfg
			a.logger = newLogger(os.Stderr, cfg.LogLevel)
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&dir, "config-dir", "", "directory holding config.yaml (default ~/.screencap)")
	pf.IntVar(&targetWidth, "target-width", DefaultTargetWidth, "maximum width of returned images in pixels")
	pf.DurationVar(&timeout, "timeout", DefaultCaptureTimeout, "hard ceiling on a single platform capture")
	pf.StringVar(&backend, "backend", backendAuto, "capture backend: auto, native, portal or ffmpeg")
	pf.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error")

	serve := newServeCmd(a)
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	root.AddCommand(
		serve,
		newCaptureCmd(a),
		newWindowsCmd(),
		newPickCmd(a),
		newDiscoverCmd(),
		newConfigCmd(a),
	)
	return root
}

// service builds a Service from the resolved configuration. A backend that
// fails to initialize is reported on every capture rather than here.
func (a *app) service(logger *slog.Logger) (*Service, WindowLister) {
	backend, err := NewBackend(a.cfg.Backend)
	if err != nil {
		logger.Warn("no capture backend available", "backend", a.cfg.Backend, "error", err)
		backend = unavailableBackend{err: err}
	}
	lister := newWindowLister()
	return NewService(a.cfg, backend, lister, logger), lister
}

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the take_screenshot tool over MCP (stdio unless --listen is set)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			svc, _ := a.service(a.logger)
			srv := newMCPServer(svc)

			if a.cfg.Listen != "" {
				return serveHTTP(ctx, a.cfg.Listen, a.cfg.Advertise, srv, a.logger)
			}
			return serveStdio(ctx, srv, a.logger)
		},
	}
	cmd.Flags().String("listen", "", "serve streamable HTTP on this address instead of stdio")
	cmd.Flags().Bool("advertise", false, "announce the HTTP endpoint over mDNS")
	return cmd
}

func newCaptureCmd(a *app) *cobra.Command {
	var (
		window string
		output string
	)
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture the screen or a window to a PNG file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, _ := a.service(a.logger)

			img, err := svc.Capture(cmd.Context(), targetFromTitle(window))
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, img.PNG, 0644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %dx%d, %d bytes\n", output, img.Width, img.Height, len(img.PNG))
			return nil
		},
	}
	cmd.Flags().StringVarP(&window, "window", "w", "", "capture the first window whose title contains this text")
	cmd.Flags().StringVarP(&output, "output", "o", "screenshot.png", "output file")
	return cmd
}

func newWindowsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "windows",
		Short: "List top-level windows in matching order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), listTimeout)
			defer cancel()

			windows, err := newWindowLister().ListWindows(ctx)
			if err != nil {
				return err
			}
			return printWindows(cmd.OutOrStdout(), windows)
		},
	}
}

func printWindows(w io.Writer, windows []Window) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "HANDLE\tGEOMETRY\tTITLE")
	for _, win := range windows {
		geometry := win.Rect.String()
		if !win.Rect.Valid() {
			geometry = "-"
		}
		fmt.Fprintf(tw, "0x%x\t%s\t%s\n", win.Handle, geometry, win.Title)
	}
	return tw.Flush()
}

func newPickCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "pick",
		Short: "Pick a window interactively and capture it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// The TUI owns the terminal; keep logs out of it.
			svc, lister := a.service(slog.New(slog.DiscardHandler))

			result, err := tea.NewProgram(newModel(svc, lister, output)).Run()
			if err != nil {
				return err
			}
			return result.(model).err
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "screenshot.png", "output file")
	return cmd
}

func newDiscoverCmd() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Find screencap servers advertised on the local network",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			peers, errs := DiscoverPeers(ctx)
			n := 0
			for p := range peers {
				fmt.Fprintln(cmd.OutOrStdout(), p)
				n++
			}
			if err := <-errs; err != nil {
				return err
			}
			if n == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "no screencap servers found")
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "wait", discoverTimeout, "how long to browse")
	return cmd
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the config file",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the effective configuration to the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := SaveConfig(a.cfg)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	})
	return cmd
}
