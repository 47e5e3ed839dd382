// Command orbitcam runs a terminal model viewer whose camera is watched by
// an orbitcam.Watcher. Rotation notifications can be followed over a
// WebSocket and recorded as PNG frames.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	flag.Parse()

	cfg, err := LoadConfig(*configPath, nil)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := Run(ctx, cfg, IO{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}); err != nil {
		log.Fatalf("orbitcam: %v", err)
	}
}
