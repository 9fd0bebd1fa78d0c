package main

import "github.com/redframe/redpanda/cmd"

func main() {
	cmd.Execute()
}
