package main

import "github.com/lixenwraith/crossprefs/internal/cli"

func main() {
	cli.Execute()
}
