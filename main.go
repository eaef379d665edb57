package main

import "stargazer/cmd"

func main() {
	cmd.Execute()
}
