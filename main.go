package main

import "mp3nema/cmd"

func main() {
	cmd.Execute()
}
