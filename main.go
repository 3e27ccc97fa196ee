package main

import "triago/cmd"

func main() {
	cmd.Execute()
}
