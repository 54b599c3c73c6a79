package main

import "dw-importer/cmd"

func main() {
	cmd.Execute()
}
