package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"schoolportal/internal/config"
	"schoolportal/internal/db"
)

func main() {
	direction := flag.String("direction", "up", "migration direction: up or down")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	var err error
	switch *direction {
	case "up":
		err = db.Migrate(cfg.DatabaseURL)
	case "down":
		err = db.MigrateDown(cfg.DatabaseURL)
	default:
		fmt.Fprintf(os.Stderr, "unknown direction %q\n", *direction)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s: %v\n", *direction, err)
		os.Exit(1)
	}
	fmt.Printf("migrate %s: done\n", *direction)
}
