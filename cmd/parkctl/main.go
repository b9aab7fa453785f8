// Package main provides parkctl, an offline command line client for the
// parkwise cost engine and operator tooling.
package main

import (
	"context"
	"fmt"
	"os"
)

// Version is set at compile time via ldflags.
var Version = "dev"

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
