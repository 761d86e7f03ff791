package main

import "github.com/talkincode/adboard/cmd/adboard/commands"

func main() {
	commands.Execute()
}
