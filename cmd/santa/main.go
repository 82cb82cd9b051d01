// Package main runs the offline secret-santa command line.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	santacmd "github.com/louisbranch/secretsanta/internal/cmd/santa"
	entrypoint "github.com/louisbranch/secretsanta/internal/platform/cmd"
	"github.com/louisbranch/secretsanta/internal/platform/config"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := santacmd.NewRootCommand(version).ExecuteContext(ctx)
	stop()
	config.ExitOnError(entrypoint.ServiceCLI, err)
}
