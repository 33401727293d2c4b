package config

import (
	"log"

	"github.com/joho/godotenv"
)

// LoadEnv loads a local .env file if present; in deployed environments the
// variables come from the process environment.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using process environment")
	}
}
