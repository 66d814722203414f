package main

import "github.com/pfrederiksen/fisica-eventos/internal/cli"

func main() {
	cli.Execute()
}
