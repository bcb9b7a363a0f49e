package main

import "voicefirst-backend/cmd"

func main() {
	cmd.Run()
}
