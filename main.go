package main

import "github.com/p42rthicle/shoku/cmd/shoku"

func main() {
	shoku.Execute()
}
