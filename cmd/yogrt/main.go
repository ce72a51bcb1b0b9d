package main

import (
	"fmt"
	"os"

	_ "yogrt/backends/all"
	"yogrt/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "yogrt:", err)
		os.Exit(1)
	}
}
