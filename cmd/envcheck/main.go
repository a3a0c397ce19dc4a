// Command envcheck prepares the environment for a run: it exports the gRPC
// build flags, merges .env into the process environment, and verifies that
// at least one Gemini API key is configured. Intended as a fail-fast check
// before a dependent process launches.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/nonsonwune/jamb-support/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.ApplyGRPCBuildEnv(); err != nil {
		return err
	}

	if err := godotenv.Load(); err != nil {
		return fmt.Errorf("failed to load .env file: %w", err)
	}

	count := config.CountGeminiKeys()
	if count == 0 {
		return errors.New("no Gemini API keys found in .env (GEMINI_API_KEY_1..GEMINI_API_KEY_10)")
	}

	fmt.Printf("Loaded %d Gemini API key(s)\n", count)
	fmt.Println("Environment configured successfully")
	return nil
}
