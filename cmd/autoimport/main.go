package main

import (
	"os"

	"github.com/watzon/autoimport/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
