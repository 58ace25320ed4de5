package main

import (
	"os"

	"horse.fit/showlist/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
