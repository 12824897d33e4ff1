package main

import "github.com/stackgen-cli/topogen/cmd"

func main() {
	cmd.Execute()
}
