package main

import "fmt"

// version is reported by the version subcommand (spec.md §6 CLI surface).
const version = "howdesbt 0.1.0"

func runVersion() {
	fmt.Println(version)
}
