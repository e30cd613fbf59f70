package main

import "queuectl/internal/cli"

func main() {
	cli.Execute()
}
