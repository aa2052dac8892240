package main

import (
	"os"

	"hoddor.sh/cmd/hoddor/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
