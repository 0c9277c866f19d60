// Command filevaultd runs the reference fsserver HTTP binding described in
// SPEC_FULL.md §6.1.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomjoyce1/filevault/internal/config"
	"github.com/tomjoyce1/filevault/pkg/fsserver"
	"github.com/tomjoyce1/filevault/pkg/metrics"
	"github.com/tomjoyce1/filevault/pkg/version"
)

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "version" || os.Args[1] == "--version") {
		fmt.Println(version.Full())
		return
	}

	fs := flag.NewFlagSet("filevaultd", flag.ExitOnError)
	logLevel := fs.String("log-level", "info", "Log level: debug, info, warn, error, silent")
	logFormat := fs.String("log-format", "text", "Log format: text or json")
	fs.Usage = func() {
		fmt.Println(`USAGE: filevaultd [options]

Run the reference filevault HTTP server (register/getbundle/upload/list/
download/delete/share/revoke).

OPTIONS:`)
		fs.PrintDefaults()
	}
	_ = fs.Parse(os.Args[1:])

	log := metrics.NewLogger(
		metrics.WithName("filevaultd"),
		metrics.WithLevel(metrics.ParseLevel(*logLevel)),
		metrics.WithFormat(formatFromString(*logFormat)),
	)

	cfg, err := config.LoadServerConfig()
	if err != nil {
		log.Error("failed to load config", metrics.Fields{"err": err.Error()})
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           fsserver.New().Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("starting filevaultd", metrics.Fields{"addr": srv.Addr, "api_version": cfg.APIVersion})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("listen failed", metrics.Fields{"err": err.Error()})
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", metrics.Fields{"err": err.Error()})
		os.Exit(1)
	}
	log.Info("stopped", nil)
}

func formatFromString(s string) metrics.Format {
	if s == "json" {
		return metrics.FormatJSON
	}
	return metrics.FormatText
}
