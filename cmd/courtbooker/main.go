package main

import "github.com/darren-wangg/court-booker-sub000/cmd"

func main() {
	cmd.Execute()
}
