package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/smancode/sweep/internal/cli"
)

func main() {
	cli.Execute()
}
