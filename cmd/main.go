package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
)

func main() {
	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nReceived shutdown signal, stopping services...")
		cancel() // Cancel the context to stop all services
	}()

	cmd := &cli.Command{
		Name:   "crypto-auto-trader",
		Usage:  "market data facade over the Binance REST API with simulated fallback",
		Flags:  commonFlags(),
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "start the HTTP service and the price monitor",
				Flags:  commonFlags(),
				Action: serve,
			},
			{
				Name:   "probe",
				Usage:  "check credentials and exchange connectivity, then exit",
				Flags:  commonFlags(),
				Action: probe,
			},
		},
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

// commonFlags returns fresh flag definitions; each command owns its own set
func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Usage: "optional YAML configuration file",
		},
		&cli.StringFlag{
			Name:  "env-file",
			Value: ".env",
			Usage: "dotenv file applied before reading the environment",
		},
	}
}
