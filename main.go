package main

import "github.com/coursekit/coursekit/cmd"

func main() {
	cmd.Execute()
}
