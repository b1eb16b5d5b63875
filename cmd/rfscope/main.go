package main

import "github.com/RMahshie/rfscope/internal/cli"

func main() {
	cli.Execute()
}
