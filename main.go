package main

import (
	"log"
	"os"

	cmd "github.com/logimos/horton/cmd/horton"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}
