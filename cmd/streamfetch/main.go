package main

import "github.com/arjunmehra/streamfetch/internal/cli"

func main() {
	cli.Execute()
}
