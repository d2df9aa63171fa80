package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// Optional; sensitive values (API keys, resume path) live in .env.
	_ = godotenv.Load()

	var root = &cobra.Command{Use: "jobagent"}

	root.AddCommand(runCMD(), statsCMD(), decideCMD())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}
