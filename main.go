package main

import "github.com/asikorin/kara/cmd"

func main() {
	cmd.Execute()
}
