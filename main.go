// The main package for the fellowcrawler executable.
package main

import "github.com/JakeFAU/fellowship-crawler/cmd"

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
