package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Makepad-fr/workpanel/internal/devserver"
	"github.com/Makepad-fr/workpanel/internal/logging"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:8000", "listen address")
	data := flag.String("data", "", "JSON file to keep state in (in-memory when empty)")
	level := flag.String("log-level", "info", "debug, info, warn or error")
	flag.Parse()

	l := logging.New(logging.Options{Writer: os.Stderr, Level: *level, Prefix: "devserver"})

	var (
		srv *devserver.Server
		err error
	)
	if *data != "" {
		srv, err = devserver.Open(*data, devserver.WithLogger(l))
		if err != nil {
			l.Fatal("open state", "path", *data, "err", err)
		}
	} else {
		srv = devserver.New(devserver.WithLogger(l))
	}

	hs := &http.Server{
		Addr:              *addr,
		Handler:           srv,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := hs.Shutdown(shutdownCtx); err != nil {
			l.Error("shutdown", "err", err)
		}
	}()

	l.Info("listening", "addr", *addr, "data", *data)
	if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Fatal("serve", "err", err)
	}
	l.Info("stopped")
}
