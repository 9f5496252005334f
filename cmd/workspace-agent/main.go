package main

import (
	"os"

	"github.com/subroutinecom/workspace/internal/agent"
)

func main() {
	if err := agent.Execute(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}
