package main

import (
	"os"

	"github.com/subroutinecom/workspace/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
