package main

import (
	"log"

	"github.com/optprep/casebot/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Fatal(err)
	}
}
