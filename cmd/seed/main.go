// cmd/seed loads the weekly class schedule into the configured store.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/mohammedshaibaaz/pulse-strength-gym/internal/config"
	"github.com/mohammedshaibaaz/pulse-strength-gym/internal/model"
	"github.com/mohammedshaibaaz/pulse-strength-gym/internal/seed"
	"github.com/mohammedshaibaaz/pulse-strength-gym/internal/storage"
)

func main() {
	reset := flag.Bool("reset", false, "delete all classes and bookings before seeding")
	flag.Parse()

	if err := run(context.Background(), *reset); err != nil {
		log.Fatalf("seed: %v", err)
	}
}

func run(ctx context.Context, reset bool) error {
	cfg, err := config.Load(".env")
	if err != nil {
		return err
	}

	stores, err := storage.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := stores.Close(); err != nil {
			log.Printf("close store: %v", err)
		}
	}()

	res, err := seed.Run(ctx, stores.Classes, reset)
	if err != nil {
		return err
	}
	if res.Skipped {
		log.Println("schedule already present, nothing to do (use -reset to replace it)")
		return nil
	}

	log.Printf("✓ Added %d classes", res.Inserted)
	for _, day := range model.Weekdays {
		log.Printf("   %s: %d classes", day, res.ByDay[day])
	}
	return nil
}
