package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/rezkam/hsewatch/internal/bootstrap"
	"github.com/rezkam/hsewatch/internal/config"
	"github.com/rezkam/hsewatch/internal/seed"
)

// Command-line tool that loads programs and tasks from a JSON file.
// Meant for local development and demos; production data comes from the
// HSE dashboard.
func main() {
	file := flag.String("file", "", "Path to the seed JSON file (required)")
	flag.Parse()

	if *file == "" {
		flag.Usage()
		log.Fatal("-file is required")
	}

	cfg, err := config.LoadSeedConfig()
	if err != nil {
		log.Fatal(err)
	}

	f, err := os.Open(*file)
	if err != nil {
		log.Fatalf("Failed to open seed file: %v", err)
	}
	data, err := seed.Parse(f)
	f.Close()
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()

	store, err := bootstrap.OpenStore(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("Failed to close store: %v", err)
		}
	}()

	sum, err := seed.Apply(ctx, store, data)
	if err != nil {
		log.Fatalf("Seed failed: %v", err)
	}

	fmt.Println("Seed applied")
	fmt.Println("----------------------------------------")
	fmt.Printf("Programs:         %d\n", sum.Programs)
	fmt.Printf("Progress entries: %d\n", sum.Progress)
	fmt.Printf("Tasks:            %d\n", sum.Tasks)
}
