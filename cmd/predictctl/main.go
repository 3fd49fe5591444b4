package main

import "github.com/vietddude/predictctl/internal/cli"

func main() {
	cli.Execute()
}
