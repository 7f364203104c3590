package main

import "github.com/KaramelBytes/insitu-cli/cmd"

func main() {
	cmd.Execute()
}
