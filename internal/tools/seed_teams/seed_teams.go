package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/renegades-league/draftd/internal/dbconfig"
)

// Team mirrors the league roster JSON.
type Team struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	OwnerEmail *string   `json:"owner_email"`
}

func main() {
	path := "internal/assets/teams.json"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read %s: %v\n", path, err)
		os.Exit(1)
	}
	var teams []Team
	if err := json.Unmarshal(data, &teams); err != nil {
		fmt.Fprintf(os.Stderr, "unmarshal teams: %v\n", err)
		os.Exit(1)
	}

	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(context.Background(), cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	total, inserted, skipped, errs := len(teams), 0, 0, 0
	for _, t := range teams {
		if t.ID == uuid.Nil {
			t.ID = uuid.New()
		}
		tag, err := pool.Exec(context.Background(), `
            INSERT INTO teams (id, name, owner_email)
            VALUES ($1,$2,$3)
            ON CONFLICT (name) DO NOTHING
        `, t.ID, t.Name, t.OwnerEmail)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error inserting team %s: %v\n", t.Name, err)
			errs++
			continue
		}
		if tag.RowsAffected() == 1 {
			inserted++
		} else {
			skipped++
		}
	}

	fmt.Printf(
		"Teams seed complete: %d total, %d inserted, %d skipped, %d errors\n",
		total, inserted, skipped, errs,
	)
}
