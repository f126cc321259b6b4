package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/taskboard-dev/taskboard/backend/internal/config"
)

type Repository struct {
	cfg    *config.Config
	dbpool *sql.DB
}

func NewRepository(cfg *config.Config, dbpool *sql.DB) *Repository {
	return &Repository{
		cfg:    cfg,
		dbpool: dbpool,
	}
}

// Migrate 在启动时确保两张业务表存在。
func (r *Repository) Migrate(ctx context.Context) error {
	queries := []string{
		`
			CREATE TABLE IF NOT EXISTS users (
				id BIGSERIAL PRIMARY KEY,
				name TEXT NOT NULL,
				email TEXT NOT NULL,
				password_hash TEXT NOT NULL,
				role TEXT NOT NULL DEFAULT 'user',
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				version INTEGER NOT NULL DEFAULT 1,
				CONSTRAINT users_email_key UNIQUE (email),
				CONSTRAINT users_role_check CHECK (role IN ('admin', 'user'))
			)
		`,
		// status 列故意不加 CHECK 约束，管理员的整体替换可以写入任意拼写，
		// 统计接口会计算这些拼写但不会上报
		`
			CREATE TABLE IF NOT EXISTS tasks (
				id BIGSERIAL PRIMARY KEY,
				title TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL DEFAULT 'Pending',
				priority TEXT NOT NULL DEFAULT 'Low',
				assigned_to TEXT NOT NULL DEFAULT '',
				created_by BIGINT NOT NULL REFERENCES users (id),
				deadline TIMESTAMPTZ,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				version INTEGER NOT NULL DEFAULT 1
			)
		`,
	}

	for _, query := range queries {
		queryCtx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
		_, err := r.dbpool.ExecContext(queryCtx, query)
		cancel()
		if err != nil {
			return err
		}
	}

	return nil
}
