package main

import "facelabel/cmd"

func main() {
	cmd.Execute()
}
