package main

import (
	"context"
	"fmt"
	"os"

	"github.com/apex-career/backend/internal/cli"
	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	if err := cli.Execute(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
