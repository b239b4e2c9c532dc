package main

import (
	"context"
	"log"
	"os"

	"github.com/vidfriends/clips/internal/app"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("clips: ")
	if err := app.Run(context.Background(), os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
