package main

import "github.com/ledgersh/ledgersh/cmd"

func main() {
	cmd.Execute()
}
