package main

import "heatstore/cmd"

func main() {
	cmd.Execute()
}
