// Command grantha serves the article editing service and imports
// manuscript files.
package main

import (
	"fmt"
	"os"

	"github.com/medhayu/grantha/cmd/grantha/commands"
)

const version = "0.1.0-dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "serve":
		err = commands.ServeCommand(args)
	case "import":
		err = commands.ImportCommand(args)
	case "validate":
		err = commands.ValidateCommand(args)
	case "version":
		fmt.Printf("grantha version %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("grantha - scholarly article editing service")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  grantha serve [--config FILE] [--port N]   Start the editing server")
	fmt.Println("  grantha import <book> <chapter> FILE...    Import manuscript files")
	fmt.Println("  grantha validate FILE...                   Validate manuscript files")
	fmt.Println("  grantha version                            Show version")
	fmt.Println("  grantha help                               Show this help")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  grantha serve                              # Serve with ./grantha.yaml or defaults")
	fmt.Println("  grantha serve --port 9000                  # Override the listen port")
	fmt.Println("  grantha import charaka sutrasthana 1.md    # Import one manuscript")
	fmt.Println("  grantha validate manuscripts/*.md          # Parse without storing")
}
