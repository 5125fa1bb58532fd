// Polybuild generates GNU make rule scripts for C and C++ projects.
package main

import "github.com/polybuild/polybuild/cmd/polybuild/internal/cli"

func main() {
	cli.Execute()
}
