package main

import (
	"os"
	"web-testgen/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
