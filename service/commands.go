package service

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"mediumplus/app/cache"
	"mediumplus/app/config"
)

// HandleCommand handles cache subcommands and returns the exit code.
func HandleCommand(args []string) int {
	if len(args) < 1 {
		printCacheHelp()
		return 1
	}

	cmd := args[0]
	switch cmd {
	case "help":
		printCacheHelp()
		return 0
	case "clean", "backup", "restore":
	default:
		fmt.Printf("Unknown cache command: %s\n\n", cmd)
		printCacheHelp()
		return 1
	}

	fs := flag.NewFlagSet("cache "+cmd, flag.ContinueOnError)
	fs.SetOutput(os.Stdout)
	configPath := fs.String("config", "", "path to a YAML configuration file")
	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	if cfg.Cache.Backend != config.BackendBadger || cfg.Cache.InMemory {
		fmt.Println("Error: cache commands need an on-disk badger page store (cache.backend=badger)")
		return 1
	}
	dbPath := cfg.Cache.BadgerPath

	switch cmd {
	case "clean":
		return clean(dbPath)
	case "backup":
		return backup(dbPath, fs.Arg(0))
	default:
		if fs.NArg() < 1 {
			fmt.Println("Error: backup file path required for restore")
				return 1
		}
		return restore(dbPath, fs.Arg(0))
	}
}

// printCacheHelp prints help for cache subcommands.
func printCacheHelp() {
	helpText := `Usage: mediumplus cache <command> [--config <file>] [args]

Commands:
  clean                  Drop every rendered page from the page store
  backup [file]          Write a backup of the page store
  restore <file>         Load pages from a backup
  help                   Display this help message
`
	fmt.Println(helpText)
}

// clean drops all stored pages. They are rebuilt on the next request or
// prebuild.
func clean(dbPath string) int {
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("Page store is already clean (does not exist)")
		return 0
	}

	if !confirm("Are you sure you want to drop every rendered page?") {
		fmt.Println("Operation cancelled")
		return 1
	}

	store, err := cache.OpenBadgerStore(cache.BadgerOptions{Path: dbPath})
	if err != nil {
		fmt.Printf("Failed to open page store: %v\n", err)
		return 1
	}
	defer store.Close()

	if err := store.Clear(); err != nil {
		fmt.Printf("Failed to clean page store: %v\n", err)
		return 1
	}
	fmt.Println("Page store cleaned successfully")
	return 0
}

// backup writes the page store to file, or to a timestamped file under
// backupDir when file is empty.
func backup(dbPath, file string) int {
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("No page store exists to backup")
		return 1
	}

	if file == "" {
		if err := os.MkdirAll(backupDir, 0755); err != nil {
			fmt.Printf("Failed to create backup directory: %v\n", err)
			return 1
		}
		file = filepath.Join(backupDir, fmt.Sprintf("pages_%d.bak", time.Now().Unix()))
	}

	store, err := cache.OpenBadgerStore(cache.BadgerOptions{Path: dbPath})
	if err != nil {
		fmt.Printf("Failed to open page store: %v\n", err)
		return 1
	}
	defer store.Close()

	f, err := os.Create(file)
	if err != nil {
		fmt.Printf("Failed to create backup file: %v\n", err)
		return 1
	}
	defer f.Close()

	if err := store.Backup(f); err != nil {
		fmt.Printf("Failed to backup page store: %v\n", err)
		return 1
	}

	fmt.Printf("Page store backed up successfully to %s\n", file)
	return 0
}

// restore loads a backup into the page store, replacing what is there after
// confirmation.
func restore(dbPath, backupFile string) int {
	fi, err := os.Stat(backupFile)
	if os.IsNotExist(err) {
		fmt.Printf("Backup file does not exist: %s\n", backupFile)
		return 1
	}
	if err != nil {
		fmt.Printf("Failed to stat backup file: %v\n", err)
		return 1
	}
	if fi.Size() == 0 {
		fmt.Printf("Backup file is empty: %s\n", backupFile)
		return 1
	}

	if _, err := os.Stat(dbPath); err == nil {
		if !confirm("Existing page store found. Do you want to replace it?") {
			fmt.Println("Operation cancelled")
			return 1
		}
		if err := os.RemoveAll(dbPath); err != nil {
			fmt.Printf("Failed to remove existing page store: %v\n", err)
			return 1
		}
	}

	if err := os.MkdirAll(dbPath, 0755); err != nil {
		fmt.Printf("Failed to create page store directory: %v\n", err)
		return 1
	}

	store, err := cache.OpenBadgerStore(cache.BadgerOptions{Path: dbPath})
	if err != nil {
		fmt.Printf("Failed to open page store: %v\n", err)
		return 1
	}
	defer store.Close()

	f, err := os.Open(backupFile)
	if err != nil {
		fmt.Printf("Failed to open backup file: %v\n", err)
		return 1
	}
	defer f.Close()

	err = func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic occurred during restore: %v", r)
			}
		}()
		return store.Restore(f)
	}()
	if err != nil {
		fmt.Printf("Failed to restore page store: %v\n", err)
		return 1
	}

	fmt.Println("Page store restored successfully")
	return 0
}
