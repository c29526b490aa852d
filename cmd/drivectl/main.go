package main

import (
	"os"

	"github.com/emmayusufu/googledriveclone/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
