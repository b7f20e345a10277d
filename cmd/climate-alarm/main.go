package main

import "github.com/oshokin/climate-alarm/cmd/climate-alarm/cmd"

func main() {
	cmd.Execute()
}
