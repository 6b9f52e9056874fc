package main

import "github.com/deploymenttheory/go-ups/cmd"

func main() {
	cmd.Execute()
}
