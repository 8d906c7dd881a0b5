package main

import "github.com/dmizin/computer-inventory/cmd"

func main() {
	cmd.Execute()
}
