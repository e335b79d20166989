package main

import "github.com/gtonic/resumebot/cmd/resumectl/cmd"

func main() {
	cmd.Execute()
}
