package main

import (
	"os"

	"github.com/OFFIS-RIT/ris/internal/util"
)

func main() {
	util.LoadEnv()
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}
