package main

import "github.com/novahq/nova/internal/commands"

func main() {
	commands.Execute()
}
