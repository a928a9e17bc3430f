package main

import "github.com/notargets/convstudy/cmd"

func main() {
	cmd.Execute()
}
