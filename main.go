package main

import "github.com/rnwolfe/tasky/cmd"

func main() {
	cmd.Execute()
}
