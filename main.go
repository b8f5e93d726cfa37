package main

import (
	"os"

	"github.com/nyo16/nous-sub006/internal/cli"
)

func main() {
	code, _ := cli.Run(os.Args, nil)
	os.Exit(code)
}
