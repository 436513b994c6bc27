package main

import "civic-portal/internal/cli"

func main() {
	cli.Execute()
}
