package main

import (
	_ "time/tzdata"

	"rollcall/cmd"
)

func main() {
	cmd.Execute()
}
