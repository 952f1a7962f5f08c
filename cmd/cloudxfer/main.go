package main

import "github.com/derektruong/cloudxfer/cmd/cloudxfer/cmd"

func main() {
	cmd.Execute()
}
