package main

import "discourse/issuegraph/cmd"

func main() {
	cmd.Execute()
}
