package main

import "github.com/strandnet/strand/cmd"

func main() {
	cmd.Execute()
}
