// Command simd runs the PRTS control-center simulator: the REST and
// WebSocket surface the console speaks, seeded with demo data and an
// optional random attack generator.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"

	"go.uber.org/zap"

	"github.com/prtslab/prts-console/internal/logger"
	"github.com/prtslab/prts-console/internal/simd"
)

func main() {
	var (
		addr     string
		generate bool
		logLevel string
	)
	flag.StringVar(&addr, "a", "localhost:8080", "listen address")
	flag.BoolVar(&generate, "generate", true, "emit random attack events")
	flag.StringVar(&logLevel, "log-level", "info", "log level")
	flag.Parse()

	log, err := logger.New(logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	server := simd.NewServer(log)
	if generate {
		server.StartAttackGenerator(context.Background())
	}

	log.Info("simulator listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, server.Router()); err != nil {
		log.Fatal("simulator stopped", zap.Error(err))
	}
}
