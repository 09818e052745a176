package main

import "github.com/csweichel/plainrw/cmd"

func main() {
	cmd.Execute()
}
