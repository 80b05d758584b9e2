package main

import (
	"example.com/backstage/tools/loadtest/cmd"
)

func main() {
	cmd.Execute()
}
