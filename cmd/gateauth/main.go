package main

import "github.com/MrEthical07/gateAuth/cmd/gateauth/cmd"

func main() {
	cmd.Execute()
}
