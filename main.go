package main

import "inkpost/commands"

func main() {
	commands.Execute()
}
