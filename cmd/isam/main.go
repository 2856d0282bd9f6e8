package main

import (
	"context"

	"github.com/Blackdeer1524/ISAMStore/cmd/isam/commands"
)

func main() {
	commands.MustExecute(context.Background())
}
