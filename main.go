package main

import "github.com/dszqbsm/xoso/cmd"

func main() {
	cmd.Execute()
}
