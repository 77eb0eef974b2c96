package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/benvon/smart-calendar/cmd/calendar-assistant/commands"
	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; real environment variables take precedence
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: failed to load .env: %v\n", err)
	}

	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
