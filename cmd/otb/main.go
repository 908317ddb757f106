package main

import "github.com/OpenTraceLab/OpenTraceBoard/cmd/otb/cmd"

func main() {
	cmd.Execute()
}
