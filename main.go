package main

import "github.com/lepinkainen/bookmind/cmd"

var execute = cmd.Execute

func main() {
	execute()
}
