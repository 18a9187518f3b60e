package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/devserve/internal/cliconfig"
	"github.com/bft-labs/devserve/internal/devserver"
	"github.com/bft-labs/devserve/internal/logging"
	"github.com/bft-labs/devserve/internal/watch"
)

const longHelp = `Serve a project directory over HTTP for local development.

Every response carries Access-Control-Allow-Origin: * and
Cache-Control: no-store, no-cache, must-revalidate, and .wasm files are
served as application/wasm so browsers can stream-compile them.

The document root defaults to the parent of the directory holding the
devserve binary, so tools/devserve serves the project from anywhere.`

var exampleUsage = strings.TrimSpace(`
  devserve
  devserve 9000
  devserve --root ./site --watch
`)

// shutdownTimeout bounds how long in-flight requests may take after a signal.
const shutdownTimeout = 5 * time.Second

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	log := logging.New(os.Stderr, cliconfig.DefaultConfig().LogLevel())

	if err := newRootCommand(os.Stdout, os.Stderr).Execute(); err != nil {
		log.Error().Err(err).Msg("devserve")
		os.Exit(1)
	}
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	cfg := cliconfig.DefaultConfig()

	root := &cobra.Command{
		Use:           "devserve [port]",
		Short:         "Static file server for local development",
		Long:          longHelp,
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			// Apply environment variables (DEVSERVE_*); flags win.
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			// A positional port mirrors the older "server <port>" usage.
			if len(args) == 1 && !changed["port"] {
				p, err := cliconfig.ParsePort(args[0])
				if err != nil {
					return err
				}
				cfg.Port = p
			}

			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg, stdout, stderr)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.Flags().IntVar(&cfg.Port, "port", cfg.Port, "TCP port to listen on (all interfaces)")
	root.Flags().StringVar(&cfg.Root, "root", cfg.Root, "document root (default: parent of the binary's directory)")
	root.Flags().BoolVar(&cfg.Watch, "watch", cfg.Watch, "log file changes below the document root")
	root.Flags().BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "log every request")

	return root
}

func run(ctx context.Context, cfg cliconfig.Config, stdout, stderr io.Writer) error {
	log := logging.New(stderr, cfg.LogLevel())
	log.Debug().Interface("config", cfg).Msg("configuration")

	srv, err := devserver.New(devserver.Config{Root: cfg.Root, Addr: cfg.Addr()}, devserver.WithLogger(log))
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(); err != nil {
		return err
	}
	if err := devserver.WriteBanner(stdout, srv.URL(), cfg.Root); err != nil {
		log.Warn().Err(err).Msg("write banner")
	}

	if cfg.Watch {
		w := watch.New(cfg.Root, log)
		go func() {
			if err := w.Run(ctx); err != nil {
				log.Warn().Err(err).Msg("change watcher stopped")
			}
		}()
	}

	select {
	case <-ctx.Done():
		log.Info().Msg("received signal, stopping...")
	case <-srv.Done():
		return fmt.Errorf("serve: %w", srv.Err())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
