package main

import "sdragent/cmd"

func main() {
	cmd.Execute()
}
