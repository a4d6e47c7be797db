package main

import "github.com/Mike-Morrow/Lithium-Analysis/cmd"

func main() {
	cmd.Execute()
}
