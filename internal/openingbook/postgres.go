package openingbook

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS historical_games (
	id                TEXT PRIMARY KEY,
	player1_faction   TEXT NOT NULL,
	player2_faction   TEXT NOT NULL,
	player1_list_hash TEXT NOT NULL,
	player2_list_hash TEXT NOT NULL,
	winner            SMALLINT NOT NULL CHECK (winner IN (1, 2)),
	player1_vp        INTEGER NOT NULL DEFAULT 0,
	player2_vp        INTEGER NOT NULL DEFAULT 0,
	turn_count        INTEGER NOT NULL DEFAULT 5,
	game_date         TIMESTAMPTZ NOT NULL DEFAULT now(),
	source            TEXT NOT NULL DEFAULT 'user'
);

CREATE INDEX IF NOT EXISTS idx_faction_matchup
	ON historical_games (player1_faction, player2_faction);

CREATE INDEX IF NOT EXISTS idx_list_hash
	ON historical_games (player1_list_hash, player2_list_hash);

CREATE TABLE IF NOT EXISTS deployment_patterns (
	id               TEXT PRIMARY KEY,
	player_faction   TEXT NOT NULL,
	opponent_faction TEXT NOT NULL,
	pattern_name     TEXT NOT NULL,
	deployment_zones JSONB NOT NULL DEFAULT '{}'::jsonb,
	description      TEXT NOT NULL DEFAULT '',
	games_used       INTEGER NOT NULL DEFAULT 0,
	wins             INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_pattern_matchup
	ON deployment_patterns (player_faction, opponent_faction);

CREATE OR REPLACE VIEW faction_stats AS
SELECT
	player1_faction AS faction,
	player2_faction AS opponent,
	COUNT(*) AS games,
	SUM(CASE WHEN winner = 1 THEN 1 ELSE 0 END) AS wins,
	SUM(CASE WHEN winner = 2 THEN 1 ELSE 0 END) AS losses,
	AVG(player1_vp)::float8 AS avg_vp_scored,
	AVG(player2_vp)::float8 AS avg_vp_conceded
FROM historical_games
GROUP BY player1_faction, player2_faction;
`

const gameColumns = `
	id,
	player1_faction,
	player2_faction,
	player1_list_hash,
	player2_list_hash,
	winner,
	player1_vp,
	player2_vp,
	turn_count,
	game_date,
	source`

// PostgresRepository is the Repository backed by database/sql and lib/pq.
type PostgresRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db, now: time.Now}
}

// Migrate creates the tables, indexes and the faction_stats view.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migrate opening book schema: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *PostgresRepository) IndexGame(ctx context.Context, params IndexGameParams) (HistoricalGameResult, error) {
	game, err := params.Normalize(r.now())
	if err != nil {
		return HistoricalGameResult{}, err
	}

	const query = `
		INSERT INTO historical_games (
			id,
			player1_faction,
			player2_faction,
			player1_list_hash,
			player2_list_hash,
			winner,
			player1_vp,
			player2_vp,
			turn_count,
			game_date,
			source
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			player1_faction = EXCLUDED.player1_faction,
			player2_faction = EXCLUDED.player2_faction,
			player1_list_hash = EXCLUDED.player1_list_hash,
			player2_list_hash = EXCLUDED.player2_list_hash,
			winner = EXCLUDED.winner,
			player1_vp = EXCLUDED.player1_vp,
			player2_vp = EXCLUDED.player2_vp,
			turn_count = EXCLUDED.turn_count,
			game_date = EXCLUDED.game_date,
			source = EXCLUDED.source`

	_, err = r.db.ExecContext(
		ctx,
		query,
		game.ID,
		game.Player1Faction,
		game.Player2Faction,
		game.Player1ListHash,
		game.Player2ListHash,
		game.Winner,
		game.Player1VP,
		game.Player2VP,
		game.TurnCount,
		game.GameDate,
		game.Source,
	)
	if err != nil {
		return HistoricalGameResult{}, fmt.Errorf("index historical game: %w", err)
	}
	return game, nil
}

func (r *PostgresRepository) QueryMatchup(ctx context.Context, faction, opponent string, limit int) ([]HistoricalGameResult, error) {
	query := `SELECT` + gameColumns + `
		FROM historical_games
		WHERE player1_faction = $1 AND player2_faction = $2
		ORDER BY game_date DESC, id
		LIMIT $3`
	rows, err := r.db.QueryContext(ctx, query, strings.TrimSpace(faction), strings.TrimSpace(opponent), normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("select matchup games: %w", err)
	}
	return scanGames(rows)
}

func (r *PostgresRepository) QueryFaction(ctx context.Context, faction string, limit int) ([]HistoricalGameResult, error) {
	query := `SELECT` + gameColumns + `
		FROM historical_games
		WHERE player1_faction = $1
		ORDER BY game_date DESC, id
		LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, strings.TrimSpace(faction), normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("select faction games: %w", err)
	}
	return scanGames(rows)
}

func scanGames(rows *sql.Rows) ([]HistoricalGameResult, error) {
	defer rows.Close()
	games := make([]HistoricalGameResult, 0)
	for rows.Next() {
		var g HistoricalGameResult
		if err := rows.Scan(
			&g.ID,
			&g.Player1Faction,
			&g.Player2Faction,
			&g.Player1ListHash,
			&g.Player2ListHash,
			&g.Winner,
			&g.Player1VP,
			&g.Player2VP,
			&g.TurnCount,
			&g.GameDate,
			&g.Source,
		); err != nil {
			return nil, fmt.Errorf("scan historical game: %w", err)
		}
		g.GameDate = g.GameDate.UTC()
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate historical games: %w", err)
	}
	return games, nil
}

func (r *PostgresRepository) GetMatchupStats(ctx context.Context, faction, opponent string) (*FactionStatistics, error) {
	const query = `
		SELECT faction, opponent, games, wins, losses, avg_vp_scored, avg_vp_conceded
		FROM faction_stats
		WHERE faction = $1 AND opponent = $2`

	var s FactionStatistics
	err := r.db.QueryRowContext(ctx, query, strings.TrimSpace(faction), strings.TrimSpace(opponent)).Scan(
		&s.Faction,
		&s.Opponent,
		&s.Games,
		&s.Wins,
		&s.Losses,
		&s.AvgVPScored,
		&s.AvgVPConceded,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select matchup stats: %w", err)
	}
	return &s, nil
}

func (r *PostgresRepository) ListRecord(ctx context.Context, faction, opponent, listHash string) (int, int, error) {
	const query = `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN winner = 1 THEN 1 ELSE 0 END), 0)
		FROM historical_games
		WHERE player1_faction = $1 AND player2_faction = $2 AND player1_list_hash = $3`

	var games, wins int
	err := r.db.QueryRowContext(ctx, query,
		strings.TrimSpace(faction),
		strings.TrimSpace(opponent),
		strings.TrimSpace(listHash),
	).Scan(&games, &wins)
	if err != nil {
		return 0, 0, fmt.Errorf("select list record: %w", err)
	}
	return games, wins, nil
}

func (r *PostgresRepository) UpsertDeploymentPattern(ctx context.Context, pattern *DeploymentPattern) error {
	if pattern == nil {
		return ErrNilPattern
	}
	if err := pattern.Validate(); err != nil {
		return err
	}
	zones := pattern.Zones
	if zones == nil {
		zones = map[string]string{}
	}
	zonesJSON, err := json.Marshal(zones)
	if err != nil {
		return fmt.Errorf("marshal deployment_zones: %w", err)
	}

	const query = `
		INSERT INTO deployment_patterns (
			id,
			player_faction,
			opponent_faction,
			pattern_name,
			deployment_zones,
			description,
			games_used,
			wins
		)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			player_faction = EXCLUDED.player_faction,
			opponent_faction = EXCLUDED.opponent_faction,
			pattern_name = EXCLUDED.pattern_name,
			deployment_zones = EXCLUDED.deployment_zones,
			description = EXCLUDED.description,
			games_used = EXCLUDED.games_used,
			wins = EXCLUDED.wins`

	_, err = r.db.ExecContext(
		ctx,
		query,
		strings.TrimSpace(pattern.ID),
		strings.TrimSpace(pattern.PlayerFaction),
		strings.TrimSpace(pattern.OpponentFaction),
		pattern.Name,
		zonesJSON,
		pattern.Description,
		pattern.GamesUsed,
		pattern.Wins,
	)
	if err != nil {
		return fmt.Errorf("upsert deployment pattern: %w", err)
	}
	return nil
}

func (r *PostgresRepository) TopDeploymentPattern(ctx context.Context, faction, opponent string) (*DeploymentPattern, error) {
	const query = `
		SELECT id, player_faction, opponent_faction, pattern_name, deployment_zones, description, games_used, wins
		FROM deployment_patterns
		WHERE player_faction = $1 AND opponent_faction = $2
		ORDER BY games_used DESC, wins DESC, id
		LIMIT 1`

	var (
		p         DeploymentPattern
		zonesJSON []byte
	)
	err := r.db.QueryRowContext(ctx, query, strings.TrimSpace(faction), strings.TrimSpace(opponent)).Scan(
		&p.ID,
		&p.PlayerFaction,
		&p.OpponentFaction,
		&p.Name,
		&zonesJSON,
		&p.Description,
		&p.GamesUsed,
		&p.Wins,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select deployment pattern: %w", err)
	}
	if err := json.Unmarshal(zonesJSON, &p.Zones); err != nil {
		return nil, fmt.Errorf("unmarshal deployment_zones: %w", err)
	}
	return &p, nil
}
