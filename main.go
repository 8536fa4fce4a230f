package main

import (
	"os"

	"github.com/spigell/workhive/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
