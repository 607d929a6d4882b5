package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bedag/subst-installer/cmd"
	"github.com/bedag/subst-installer/pkg/installer"
	"github.com/charmbracelet/fang"
)

var (
	// Version and Commit are set during build
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	err := fang.Execute(
		ctx,
		cmd.RootCmd,
		fang.WithVersion(version),
		fang.WithCommit(commit),
	)
	stop()
	if err != nil {
		os.Exit(installer.ExitCode(err))
	}
}
