package main

import (
	"github.com/panda-cat/netdev-dep/cmd/connexec/commands"
)

func main() {
	commands.Execute()
}
