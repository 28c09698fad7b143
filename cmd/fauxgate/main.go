package main

import "github.com/jmcleod/fauxgate/cmd/fauxgate/cmd"

func main() {
	cmd.Execute()
}
