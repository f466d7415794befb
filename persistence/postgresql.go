// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"

	_ "github.com/lib/pq" // PostgreSQL 驱动

	"github.com/wfunc/matchlobby/models"
)

const queryTimeout = 5 * time.Second

// SQLHistory 基于 database/sql 的历史存储
type SQLHistory struct {
	db *sql.DB
}

// NewSQLHistory 创建 PostgreSQL 数据库连接
func NewSQLHistory(host string, port int, user, password, dbname string) (*SQLHistory, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ping postgres")
	}

	// 设置连接池参数
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initTables(ctx, db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create match_events")
	}
	return &SQLHistory{db: db}, nil
}

// initTables 初始化数据库表结构
func initTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS match_events (
            id SERIAL PRIMARY KEY,
            type VARCHAR(32) NOT NULL,
            match_id VARCHAR(16) NOT NULL,
            player_id VARCHAR(64),
            seat INTEGER NOT NULL DEFAULT 0,
            public BOOLEAN NOT NULL DEFAULT FALSE,
            players JSONB,
            occurred_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
        CREATE INDEX IF NOT EXISTS idx_match_events_match_id ON match_events(match_id);
        CREATE INDEX IF NOT EXISTS idx_match_events_occurred_at ON match_events(occurred_at);
    `)
	return err
}

func (p *SQLHistory) Record(ctx context.Context, e models.MatchEvent) error {
	players, err := json.Marshal(e.Players)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err = p.db.ExecContext(ctx, `
        INSERT INTO match_events (type, match_id, player_id, seat, public, players, occurred_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `, e.Type, e.MatchID, e.PlayerID, e.Seat, e.Public, players, e.At)
	return err
}

func (p *SQLHistory) Recent(ctx context.Context, limit int) ([]models.MatchEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := p.db.QueryContext(ctx, `
        SELECT id, type, match_id, COALESCE(player_id, ''), seat, public, players, occurred_at
        FROM match_events ORDER BY occurred_at DESC, id DESC LIMIT $1
    `, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}

func (p *SQLHistory) ByMatch(ctx context.Context, matchID string) ([]models.MatchEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := p.db.QueryContext(ctx, `
        SELECT id, type, match_id, COALESCE(player_id, ''), seat, public, players, occurred_at
        FROM match_events WHERE match_id = $1 ORDER BY occurred_at ASC, id ASC
    `, matchID)
	if err != nil {
		return nil, err
	}
	result, err := scanEvents(rows)
	if err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, ErrRecordNotFound
	}
	return result, nil
}

// Close 关闭数据库连接
func (p *SQLHistory) Close() error {
	return p.db.Close()
}

func scanEvents(rows *sql.Rows) ([]models.MatchEvent, error) {
	defer rows.Close()

	var result []models.MatchEvent
	for rows.Next() {
		var (
			e       models.MatchEvent
			players []byte
		)
		if err := rows.Scan(&e.ID, &e.Type, &e.MatchID, &e.PlayerID, &e.Seat, &e.Public, &players, &e.At); err != nil {
			return nil, err
		}
		if len(players) > 0 {
			if err := json.Unmarshal(players, &e.Players); err != nil {
				return nil, err
			}
		}
		result = append(result, e)
	}
	return result, rows.Err()
}
