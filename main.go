package main

import "github.com/nodalmesh/kvstore/cmd"

func main() {
	cmd.Execute()
}
