package main

import (
	_ "github.com/joho/godotenv/autoload"

	"github.com/predixlabs/crossarb/cmd"
)

func main() {
	cmd.Execute()
}
