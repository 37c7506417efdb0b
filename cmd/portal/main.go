package main

import "semanticportal/internal/cli"

func main() {
	cli.Execute()
}
