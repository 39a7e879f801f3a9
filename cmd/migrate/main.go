package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gozunis/adapters/postgres"
	"gozunis/domain/run"
	"gozunis/internal/config"
	"gozunis/internal/container"

	"github.com/joho/godotenv"
)

// Usage: migrate [runs_dir]
//
// Applies the schema to DATABASE_URL and, when runs_dir is given, imports every
// run JSON file written by "gozunis-cli integrate --json".
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if !cfg.Database.Enabled() {
		log.Fatal("DATABASE_URL is required")
	}

	ctx := context.Background()
	db, err := container.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	defer db.Close()
	log.Println("Schema applied")

	if len(os.Args) < 2 {
		return
	}

	runsDir := os.Args[1]
	files, err := findRunFiles(runsDir)
	if err != nil {
		log.Fatalf("Failed to find run files: %v", err)
	}
	log.Printf("Found %d run files to import from %s", len(files), runsDir)

	repo := postgres.NewRunRepository(db)
	imported := 0
	skipped := 0

	for _, file := range files {
		r, err := loadRunFromFile(file)
		if err != nil {
			log.Printf("Failed to load run from %s: %v", file, err)
			skipped++
			continue
		}

		if err := repo.SaveRun(ctx, r); err != nil {
			log.Printf("Failed to save run %s: %v", r.Manifest.RunID, err)
			skipped++
			continue
		}

		imported++
		log.Printf("Imported run %s from %s", r.Manifest.RunID, filepath.Base(file))
	}

	log.Printf("Import complete: %d imported, %d skipped", imported, skipped)
}

func findRunFiles(dir string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !info.IsDir() && strings.HasSuffix(path, ".json") {
			files = append(files, path)
		}

		return nil
	})

	return files, err
}

func loadRunFromFile(filePath string) (*run.Run, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var r run.Run
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	if err := r.Manifest.Validate(); err != nil {
		return nil, err
	}

	return &r, nil
}
