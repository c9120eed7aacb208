package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/Crimsonninja/coen175/pkg/compiler"
)

func main() {
	underscore := flag.Bool("underscore", false, "prefix external symbols with an underscore")
	flag.Parse()

	if *underscore {
		compiler.GlobalPrefix = "_"
	}

	src, err := readSource(flag.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, "read error:", err)
		os.Exit(1)
	}

	if err := compiler.Compile(src, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// readSource reads the named file, or standard input when no argument is
// given.
func readSource(args []string) (string, error) {
	if len(args) > 0 {
		data, err := os.ReadFile(args[0])
		return string(data), err
	}
	data, err := io.ReadAll(os.Stdin)
	return string(data), err
}
