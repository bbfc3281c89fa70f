package main

import (
	"github.com/joho/godotenv"

	"github.com/mselser95/arb-scanner/cmd"
)

func main() {
	// A missing .env is not an error: configuration also comes from the
	// real environment, which is how this runs in production.
	_ = godotenv.Load()

	cmd.Execute()
}
