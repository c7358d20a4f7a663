package main

import "github.com/tgconstruct/tgconstruct/internal/cmd"

func main() {
	cmd.Execute()
}
