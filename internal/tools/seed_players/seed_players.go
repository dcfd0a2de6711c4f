package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/renegades-league/draftd/internal/dbconfig"
)

// Player mirrors the season stats JSON export.
type Player struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Position      string    `json:"position"`
	NBATeam       string    `json:"nba_team"`
	Points        float64   `json:"points"`
	Rebounds      float64   `json:"rebounds"`
	Assists       float64   `json:"assists"`
	Steals        float64   `json:"steals"`
	Blocks        float64   `json:"blocks"`
	ThreePointers float64   `json:"three_pointers_made"`
	Turnovers     float64   `json:"turnovers"`
	FieldGoalPct  float64   `json:"field_goal_pct"`
	FreeThrowPct  float64   `json:"free_throw_pct"`
	GamesPlayed   int       `json:"games_played"`
}

func main() {
	path := "internal/assets/players.json"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read %s: %v\n", path, err)
		os.Exit(1)
	}
	var players []Player
	if err := json.Unmarshal(data, &players); err != nil {
		fmt.Fprintf(os.Stderr, "unmarshal players: %v\n", err)
		os.Exit(1)
	}

	cfg := dbconfig.NewConfigFromEnv()
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect error: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		fmt.Fprintf(os.Stderr, "ping error: %v\n", err)
		os.Exit(1)
	}

	total, inserted, skipped, errs := len(players), 0, 0, 0
	for _, p := range players {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		res, err := db.Exec(`
            INSERT INTO players (
              id, name, position, nba_team,
              points, rebounds, assists, steals, blocks,
              three_pointers_made, turnovers,
              field_goal_pct, free_throw_pct, games_played
            ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
            ON CONFLICT (name, nba_team) DO NOTHING
        `,
			p.ID, p.Name, p.Position, p.NBATeam,
			p.Points, p.Rebounds, p.Assists, p.Steals, p.Blocks,
			p.ThreePointers, p.Turnovers,
			p.FieldGoalPct, p.FreeThrowPct, p.GamesPlayed,
		)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error inserting player %s: %v\n", p.Name, err)
			errs++
			continue
		}
		if n, _ := res.RowsAffected(); n == 1 {
			inserted++
		} else {
			skipped++
		}
	}

	fmt.Printf(
		"Players seed: total=%d inserted=%d skipped=%d errors=%d\n",
		total, inserted, skipped, errs,
	)
}
