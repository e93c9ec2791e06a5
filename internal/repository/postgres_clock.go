package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresClock はPostgreSQLの現在時刻を取得するClock実装。
// アプリケーションサーバーのクロックずれの影響を受けないタイムスタンプを提供する。
type PostgresClock struct {
	db *sql.DB
}

// NewPostgresClock はPostgresClockを生成する。
func NewPostgresClock(db *sql.DB) *PostgresClock {
	return &PostgresClock{db: db}
}

// ServerTime はストアの現在時刻を返す。
// 接続またはクエリの失敗はそのまま呼び出し元に伝搬する。
func (c *PostgresClock) ServerTime(ctx context.Context) (time.Time, error) {
	var now time.Time
	err := c.db.QueryRowContext(ctx, `SELECT now()`).Scan(&now)
	if err != nil {
		return time.Time{}, fmt.Errorf("サーバー時刻の取得に失敗しました: %w", err)
	}
	return now, nil
}

// compile-time interface check
var _ Clock = (*PostgresClock)(nil)
