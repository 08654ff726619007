package main

import "github.com/tomasmach/photo-triage/cmd"

func main() {
	cmd.Execute()
}
