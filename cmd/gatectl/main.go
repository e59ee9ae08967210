package main

import (
	"os"

	"github.com/smallbiznis/streamgate/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
