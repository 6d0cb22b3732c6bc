package main

import "github.com/dt-pm-tools/atlsync/cmd"

func main() {
	cmd.Execute()
}
