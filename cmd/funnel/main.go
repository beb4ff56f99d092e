package main

import "github.com/minhpq/funnel/internal/cli"

func main() {
	cli.Execute()
}
