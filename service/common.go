package service

import (
	"fmt"
	"strings"
)

// Where cache backups go when no file is named.
var backupDir = "data/backups"

// confirm asks a yes/no question on stdout and reads the answer from stdin.
// Anything but y or Y is a no.
func confirm(question string) bool {
	fmt.Printf("%s [y/N] ", question)
	var response string
	fmt.Scanln(&response)
	response = strings.TrimSpace(response)
	return response == "y" || response == "Y"
}
