package main

import (
	"log"

	"github.com/webstash/webstash/internal/app"
)

func main() {
	a, err := app.New()
	if err != nil {
		log.Fatalf("❌ webstash failed to start: %v", err)
	}
	if err := a.Run(); err != nil {
		log.Fatalf("❌ webstash failed: %v", err)
	}
}
