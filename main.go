package main

import "github.com/kiesman99/regrid/cmd"

func main() {
	cmd.Execute()
}
