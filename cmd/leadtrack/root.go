package main

import (
	"context"
	"fmt"
	"io"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/osr-alliance/leadtrack/config"
	"github.com/osr-alliance/leadtrack/store"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	configPath string
	debug      bool

	cfg config.Config
	log *logrus.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:          "leadtrack",
		Short:        "Lead tracking and SMS relay service",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "path to the yaml config (default "+config.DefaultPath+" when present)")
	cmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "debug logging, including storage cache traces")

	cmd.AddCommand(
		serveCmd(a),
		migrateCmd(a),
		sendCmd(a),
		versionCmd(),
	)
	return cmd
}

func (a *app) load(out io.Writer) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = newLogger(cfg.Log, a.debug, out)
	return nil
}

func newLogger(cfg config.Log, debug bool, out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	if debug {
		level = logrus.DebugLevel
	}
	l.SetLevel(level)

	if cfg.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l
}

func (a *app) openDB(ctx context.Context) (*sqlx.DB, error) {
	conn, err := store.Open(ctx, a.cfg.Database.Driver, a.cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if err := store.Initialize(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return conn, nil
}

// openRedis returns nil when no address is configured.
func (a *app) openRedis(ctx context.Context) (*redis.Client, error) {
	if a.cfg.Redis.Addr == "" {
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis %s: %w", a.cfg.Redis.Addr, err)
	}
	return rdb, nil
}

func (a *app) newStore(conn *sqlx.DB, rdb *redis.Client) (store.Store, error) {
	return store.New(&store.Config{
		ReadConn:  conn,
		WriteConn: conn,
		Redis:     rdb,
		CacheTTL:  a.cfg.Redis.CacheTTLSeconds,
		Debugger:  a.debug,
		Logger:    logrus.NewEntry(a.log),
	})
}
