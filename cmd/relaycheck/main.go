package main

import (
	"github.com/busybox42/relaycheck/cmd/relaycheck/commands"
)

func main() {
	commands.Execute()
}
