/*
	Copyright 2023 Markus Papenbrock
*/

package main

import "github.com/mpapenbr/racesim/cmd"

func main() {
	cmd.Execute()
}
