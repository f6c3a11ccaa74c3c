package main

import "github.com/theirongolddev/spendgrid/cmd"

func main() {
	cmd.Execute()
}
