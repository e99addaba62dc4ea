// Command callaudit analyzes voice agent call recordings and benchmarks
// competing agent configurations through simulated conversations.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sonavox/callaudit/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "callaudit: %v\n", err)
		os.Exit(1)
	}
}
