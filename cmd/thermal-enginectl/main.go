// Command thermal-enginectl loads a thermal engine configuration, drives
// its tick loop, and exposes the resulting state over HTTP.
package main

import "github.com/thermalguard/enginecore/cmd/thermal-enginectl/cmd"

func main() {
	cmd.Execute()
}
