package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"guestbook/internal/config"
	"guestbook/internal/logging"
	"guestbook/internal/metrics"
	"guestbook/internal/render"
	"guestbook/internal/server"
	"guestbook/internal/store"
	"guestbook/web"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	v      *viper.Viper
	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "guestbook",
	Short: "guestbook - a tiny site that collects visitor messages",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(v)
		if err != nil {
			return err
		}
		logger, err = logging.New(cfg.Log)
		return err
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st := openStore()
		defer st.Close()

		reg := prometheus.NewRegistry()
		m := metrics.New(reg)

		srv := server.NewServer(st, render.New(cfg.Server.Root), logger, server.Options{
			Root:         cfg.Server.Root,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			Metrics:      m,
		})

		errCh := make(chan error, 2)
		go func() {
			errCh <- srv.Start(cfg.Server.Addr)
		}()

		var metricsSrv *http.Server
		if cfg.Metrics.Addr != "" {
			mux := http.NewServeMux()
			mux.Handle("/metrics", m.Handler())
			metricsSrv = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
			go func() {
				logger.Info("Metrics listening", zap.String("addr", cfg.Metrics.Addr))
				errCh <- metricsSrv.ListenAndServe()
			}()
		}

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				logger.Fatal("Server failed", zap.Error(err))
			}
		case <-ctx.Done():
			logger.Info("Shutting down...")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		stoppers := []stopper{{name: "http", stop: srv.Stop}}
		if metricsSrv != nil {
			stoppers = append(stoppers, stopper{name: "metrics", stop: metricsSrv.Shutdown})
		}
		shutdown(shutdownCtx, logger, stoppers...)
		logger.Info("Goodbye!")
	},
}

var addCmd = &cobra.Command{
	Use:   "add [username] [message]",
	Short: "Store a message without going through the web server",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if args[0] == "" || args[1] == "" {
			logger.Fatal("Username and message must not be empty")
		}

		st := openStore()
		defer st.Close()

		msg, err := st.Append(context.Background(), args[0], args[1])
		if err != nil {
			logger.Fatal("Failed to save message", zap.Error(err))
		}

		logger.Info("Message saved",
			zap.String("timestamp", msg.Timestamp),
			zap.String("username", msg.Username))
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print stored messages in the order they were written",
	Run: func(cmd *cobra.Command, args []string) {
		st := openStore()
		defer st.Close()

		doc, err := st.Load(context.Background())
		if err != nil {
			logger.Warn("Message store could not be read", zap.Error(err))
		}
		for _, m := range doc.Messages() {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s: %s\n", m.Timestamp, m.Username, m.Body)
		}
	},
}

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Write the default pages into the served root",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dir := cfg.Server.Root
		if len(args) == 1 {
			dir = args[0]
		}

		written, err := web.Scaffold(dir)
		if err != nil {
			logger.Fatal("Failed to write site", zap.Error(err))
		}
		for _, name := range written {
			fmt.Fprintln(cmd.OutOrStdout(), "created", name)
		}
	},
}

type stopper struct {
	name string
	stop func(context.Context) error
}

// shutdown stops every listener with the shared deadline. A failure is logged
// and does not keep the remaining listeners running.
func shutdown(ctx context.Context, log *zap.Logger, stoppers ...stopper) {
	for _, s := range stoppers {
		if err := s.stop(ctx); err != nil {
			log.Error("Shutdown failed", zap.String("listener", s.name), zap.Error(err))
		}
	}
}

func openStore() store.Store {
	st, err := store.Open(store.Options{
		Backend:    cfg.Store.Backend,
		Path:       cfg.Store.Path,
		BadgerPath: cfg.Store.BadgerPath,
		RedisAddr:  cfg.Store.RedisAddr,
		Logger:     logger,
	})
	if err != nil {
		logger.Fatal("Failed to init store", zap.Error(err))
	}
	return st
}

func init() {
	v = config.New()

	flags := rootCmd.PersistentFlags()
	flags.String("root", ".", "Directory pages and assets are served from")
	flags.String("backend", "json", "Message store backend: json, badger or redis")
	flags.String("data", "storage/data.json", "Path of the JSON message document")
	flags.String("badger", "storage/badger", "Path to BadgerDB data directory")
	flags.String("redis", "localhost:6379", "Address of Redis server")
	flags.String("log-level", "info", "Log level")
	flags.String("log-file", "", "Also write JSON logs to this file (rotated)")

	serveCmd.Flags().String("addr", ":3001", "http server address")
	serveCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address (off when empty)")

	bindFlags := map[string]string{
		"server.root":       "root",
		"store.backend":     "backend",
		"store.path":        "data",
		"store.badger_path": "badger",
		"store.redis_addr":  "redis",
		"log.level":         "log-level",
		"log.file":          "log-file",
	}
	for key, name := range bindFlags {
		_ = v.BindPFlag(key, flags.Lookup(name))
	}
	_ = v.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	_ = v.BindPFlag("metrics.addr", serveCmd.Flags().Lookup("metrics-addr"))

	rootCmd.AddCommand(serveCmd, addCmd, listCmd, initCmd)
}

func main() {
	err := rootCmd.Execute()
	if logger != nil {
		_ = logger.Sync()
	}
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
