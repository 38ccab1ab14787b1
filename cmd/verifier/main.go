// verifier runs MRV batch verification and graduation checks.
//
// Usage:
//
//	verifier verify --input batch.json [--config verifier.yaml] [--out result.json] [--dry-run]
//	verifier graduate --device ID | --history history.json
//	verifier history put --file history.json
//	verifier history get --device ID
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
