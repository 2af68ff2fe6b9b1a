package main

import "github.com/sartorproj/rollforecast/cmd/rollforecast/cmd"

func main() {
	cmd.Execute()
}
