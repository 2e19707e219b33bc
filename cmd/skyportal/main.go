package main

import "github.com/helioscope/skyportal/internal/cli"

func main() {
	cli.Execute()
}
