package main

import "github.com/mtanaka-dev/stocksync/cmd"

func main() {
	cmd.Execute()
}
