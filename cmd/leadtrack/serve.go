package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/osr-alliance/leadtrack/api"
)

const shutdownTimeout = 5 * time.Second

func serveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	conn, err := a.openDB(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	rdb, err := a.openRedis(ctx)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	st, err := a.newStore(conn, rdb)
	if err != nil {
		return err
	}

	rl, err := newRelay(a.cfg.Provider, a.log)
	if err != nil {
		return err
	}

	router := api.NewRouter(&api.Config{
		Store:             st,
		Sender:            rl,
		DB:                conn,
		SendRatePerSecond: a.cfg.SendRate.PerSecond,
		SendRateBurst:     a.cfg.SendRate.Burst,
		Logger:            logrus.NewEntry(a.log),
	})

	srv := &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      a.cfg.Provider.Timeout() + 15*time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.WithFields(logrus.Fields{
			"addr":     a.cfg.Addr,
			"driver":   a.cfg.Database.Driver,
			"provider": a.cfg.Provider.Name,
			"cache":    rdb != nil,
		}).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		// in-flight requests get shutdownTimeout to finish
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
