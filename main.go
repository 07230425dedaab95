package main

import (
	"musicbox/cmd"
)

func main() {
	cmd.Execute()
}
