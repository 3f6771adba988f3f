package main

import (
	"os"

	"github.com/incidenta/incidenta/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
