package main

import "github.com/monctl/monctl/cmd"

func main() {
	cmd.Execute()
}
