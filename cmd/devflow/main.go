package main

import "github.com/hitoshi/devflow/internal/cli"

func main() {
	cli.Execute()
}
