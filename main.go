package main

import (
	"os"

	"github.com/brandonh-msft/azure-functions-host/pkg/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
