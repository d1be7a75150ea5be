package main

import "github.com/kasuboski/nfosync/cmd"

func main() {
	cmd.Execute()
}
