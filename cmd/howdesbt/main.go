// Command howdesbt builds and queries a Sequence Bloom Tree over Bloom
// filters summarizing many sequence datasets (spec.md §6). This is a thin
// entry point: argument parsing and progress/error reporting only, per
// spec.md §1's explicit non-goal ("the CLI front-end... process-wide debug
// toggles"). All real work lives in the internal packages.
package main

import (
	"fmt"
	"log"
	"os"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("howdesbt: ")

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "cluster":
		err = runCluster(os.Args[2:])
	case "build":
		err = runBuild(os.Args[2:])
	case "query":
		err = runQuery(os.Args[2:])
	case "version":
		runVersion()
		return
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "howdesbt: unknown command %q\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: howdesbt <command> [arguments]")
	fmt.Fprintln(os.Stderr, "commands: cluster, build, query, version")
}
