package main

import "github.com/parsalaw/lawfetch/cmd"

func main() {
	cmd.Execute()
}
