package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/nerdneilsfield/go-novel-mt/internal/cli"
)

// Version information
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	if err := cli.Execute(context.Background(), Version, Commit, BuildDate); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
		os.Exit(1)
	}
}
