package main

import "github.com/deploymenttheory/go-svmgr/cmd"

func main() {
	cmd.Execute()
}
