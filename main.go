package main

import "github.com/LeZajoch/alfa-3/cmd"

func main() {
	cmd.Execute()
}
