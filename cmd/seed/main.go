package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/meur/eloforge/internal/models"
	"github.com/meur/eloforge/internal/storage"
)

type seedFile struct {
	UserID string     `json:"user_id"`
	Lists  []seedList `json:"lists"`
}

type seedList struct {
	models.ListCreate
	Items []models.ItemCreate `json:"items"`
}

func main() {
	dbPath := flag.String("db", "./eloforge.db", "SQLite database path")
	seedsDir := flag.String("seeds", "./seeds", "Seeds directory")
	flag.Parse()

	store, err := storage.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	files, err := filepath.Glob(filepath.Join(*seedsDir, "*.json"))
	if err != nil {
		log.Fatalf("Failed to list seeds: %v", err)
	}

	for _, path := range files {
		n, err := seed(context.Background(), store, path)
		if err != nil {
			log.Printf("Warning: failed to seed %s: %v", filepath.Base(path), err)
			continue
		}
		log.Printf("✓ Seeded %d lists from %s", n, filepath.Base(path))
	}

	log.Println("🌱 Seeding complete!")
}

func seed(ctx context.Context, store *storage.Store, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	var file seedFile
	if err := json.Unmarshal(data, &file); err != nil {
		return 0, err
	}

	for _, sl := range file.Lists {
		list, err := store.CreateList(ctx, file.UserID, &sl.ListCreate)
		if err != nil {
			return 0, err
		}

		items := make([]models.Item, 0, len(sl.Items))
		for i, ic := range sl.Items {
			rating := models.DefaultRating
			if ic.Rating != nil {
				rating = *ic.Rating
			}
			items = append(items, models.Item{
				ListID:   list.ID,
				TMDBID:   ic.TMDBID,
				Title:    ic.Title,
				ImageRef: ic.ImageRef,
				Rating:   rating,
				Position: i,
			})
		}
		if err := store.BulkCreateItems(ctx, items); err != nil {
			return 0, err
		}
	}
	return len(file.Lists), nil
}
