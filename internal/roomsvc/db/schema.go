package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS rooms (
    id           BIGSERIAL PRIMARY KEY,
    code         TEXT NOT NULL UNIQUE,
    game_type    TEXT NOT NULL,
    status       TEXT NOT NULL DEFAULT 'WAITING',
    created_by   TEXT NOT NULL,
    total_rounds INT NOT NULL DEFAULT 0,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_rooms_status ON rooms (status);

CREATE TABLE IF NOT EXISTS players (
    id         BIGSERIAL PRIMARY KEY,
    room_id    BIGINT NOT NULL REFERENCES rooms (id) ON DELETE CASCADE,
    user_uid   TEXT NOT NULL,
    nickname   TEXT NOT NULL,
    role       TEXT NOT NULL DEFAULT 'PLAYER',
    score      INT NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (room_id, user_uid),
    UNIQUE (room_id, nickname)
);

CREATE TABLE IF NOT EXISTS rounds (
    id           BIGSERIAL PRIMARY KEY,
    room_id      BIGINT NOT NULL REFERENCES rooms (id) ON DELETE CASCADE,
    number       INT NOT NULL,
    suggester_id BIGINT REFERENCES players (id) ON DELETE SET NULL,
    stage        TEXT NOT NULL,
    target       INT,
    suggestion   JSONB,
    submissions  JSONB NOT NULL DEFAULT '{}',
    results      JSONB,
    started_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    finished_at  TIMESTAMPTZ,
    UNIQUE (room_id, number)
);

CREATE INDEX IF NOT EXISTS idx_rounds_stage ON rounds (stage);
`

// Migrate bootstraps the schema. Idempotent, safe to run on every start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to bootstrap schema: %w", err)
	}
	return nil
}
