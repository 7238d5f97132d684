package main

import "mvn-audit/cmd"

func main() {
	cmd.Execute()
}
