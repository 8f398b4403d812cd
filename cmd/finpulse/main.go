package main

import "github.com/finpulse/backend/internal/cli"

func main() {
	cli.Execute()
}
