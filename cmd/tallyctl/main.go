package main

import (
	"os"

	"github.com/MrJamesThe3rd/tally/cmd/tallyctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
