package main

import (
	"os"

	"github.com/qaznotquaz/aLexA/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
