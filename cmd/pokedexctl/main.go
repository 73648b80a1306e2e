package main

import (
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/pokedex/internal/cli"
)

func main() {
	// Optional; POKEDEX_* variables may also come from the environment.
	_ = godotenv.Load()

	cli.Execute()
}
