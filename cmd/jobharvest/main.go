package main

import (
	"context"
	"jobharvest/cmd/jobharvest/commands"
)

func main() {
	commands.ExecuteContext(context.Background())
}
