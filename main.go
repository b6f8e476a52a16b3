package main

import (
	"fmt"
	"os"
	"strings"

	"mediumplus/service"
)

const CliVersion = "1.0.0"

var exit = os.Exit

func main() {
	RealMain()
}

// RealMain dispatches os.Args to a subcommand and exits with its code.
func RealMain() {
	if len(os.Args) < 2 {
		printHelp()
		exit(1)
		return
	}

	cmd := strings.ToLower(os.Args[1])
	args := os.Args[2:]
	switch cmd {
	case "help", "-h", "--help":
		printHelp()
	case "version":
		fmt.Printf("mediumplus version %s\n", CliVersion)
	case "serve":
		exit(service.RunAppServer(args))
	case "prebuild":
		exit(service.RunPrebuild(args))
	case "cache":
		exit(service.HandleCommand(args))
	default:
		fmt.Printf("Unknown command: %s\n\n", os.Args[1])
		printHelp()
		exit(1)
	}
}

func printHelp() {
	helpText := `Usage: mediumplus <command> [options]
Commands:
  help                                 Display this help message.
  version                              Show version information.
  serve [--config <file>] [--demo]     Run the blog front end.
  prebuild [--config <file>]           Build every post page into the page store.
  cache <command> [--config <file>]    Maintain the page store:
        clean                          Drop every rendered page.
        backup [file]                  Write a backup of the page store.
        restore <file>                 Load pages from a backup.
`
	fmt.Println(helpText)
}
