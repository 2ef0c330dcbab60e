package main

import "github.com/sarchlab/rriplab/rriplab/cmd"

func main() {
	cmd.Execute()
}
