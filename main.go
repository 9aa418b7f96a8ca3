package main

import "github.com/waffyhq/waffy-go/cmd"

func main() {
	cmd.Execute()
}
