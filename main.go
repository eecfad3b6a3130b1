package main

import "github.com/cancoktug/ginovainno-replit-sub001/cmd"

func main() {
	cmd.Execute()
}
