package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"

	"github.com/meigma/arkive/internal/cli"
)

func main() {
	if err := fang.Execute(context.Background(), cli.NewRootCmd(), fang.WithVersion(cli.Version())); err != nil {
		os.Exit(1)
	}
}
