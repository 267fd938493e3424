package main

import (
	"fmt"
	"os"

	"github.com/paramvora-myacara/oz-listings-api/apps/cli/root"
)

func main() {
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
