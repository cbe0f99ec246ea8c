// Command reset_backfill rewinds a single contract's discovery watermark to
// its deploy block, so the next discovery pass re-scans it from scratch.
// Useful after fixing a contract's ABI or correcting a bad deploy block.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	address := flag.String("address", "", "contract address (0x-prefixed)")
	flag.Parse()

	if *address == "" {
		log.Fatal("usage: reset_backfill -address 0x...")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL must be set")
	}

	cfg, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		log.Fatalf("unable to parse DATABASE_URL: %v", err)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		log.Fatalf("unable to connect to database: %v", err)
	}
	defer pool.Close()

	ctx := context.Background()

	tag, err := pool.Exec(ctx, `
		UPDATE contracts
		SET indexed_through_block = deploy_block, consecutive_failures = 0
		WHERE address = LOWER($1)
	`, *address)
	if err != nil {
		log.Fatalf("failed to reset watermark: %v", err)
	}

	if tag.RowsAffected() == 0 {
		fmt.Printf("no contract found with address %s\n", *address)
		return
	}
	fmt.Printf("reset indexed_through_block to deploy_block for %s\n", *address)
}
