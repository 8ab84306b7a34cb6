package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/zhitaogpt/BinanceAlphaTool/internal/stats"
)

// Archive 成交记录的 SQLite 归档。
// 内存中的 tradeHistory 进程退出即丢，归档负责跨运行留存。
// 写入失败只告警不影响交易循环。
type Archive struct {
	db *sql.DB
}

// Open 打开（或创建）归档数据库
func Open(dbPath string) (*Archive, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("history: db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("history: mkdir db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("history: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite：单连接更稳定
	db.SetMaxIdleConns(1)

	a := &Archive{db: db}
	if err := a.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return a, nil
}

func (a *Archive) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}

func (a *Archive) migrate() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`
CREATE TABLE IF NOT EXISTS trade_records (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  cycle_number INTEGER NOT NULL,
  buy_amount REAL NOT NULL,
  sell_amount REAL NOT NULL,
  profit_loss REAL NOT NULL,
  ts TEXT NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS idx_trade_records_ts ON trade_records(ts);`,
	}
	for _, stmt := range stmts {
		if _, err := a.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("history: migrate: %w", err)
		}
	}
	return nil
}

// Append 追加一条成交记录
func (a *Archive) Append(ctx context.Context, rec stats.TradeRecord) error {
	_, err := a.db.ExecContext(ctx, `
INSERT INTO trade_records (cycle_number, buy_amount, sell_amount, profit_loss, ts)
VALUES (?,?,?,?,?)
`, rec.CycleNumber, rec.BuyAmount, rec.SellAmount, rec.ProfitLoss, rec.Time.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("history: insert record: %w", err)
	}
	return nil
}

// Recent 按时间倒序返回最近 limit 条记录
func (a *Archive) Recent(ctx context.Context, limit int) ([]stats.TradeRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := a.db.QueryContext(ctx, `
SELECT cycle_number, buy_amount, sell_amount, profit_loss, ts
FROM trade_records
ORDER BY id DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query records: %w", err)
	}
	defer rows.Close()

	var out []stats.TradeRecord
	for rows.Next() {
		var rec stats.TradeRecord
		var ts string
		if err := rows.Scan(&rec.CycleNumber, &rec.BuyAmount, &rec.SellAmount, &rec.ProfitLoss, &ts); err != nil {
			return nil, fmt.Errorf("history: scan record: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			rec.Time = t
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// TotalVolume 归档中的累计买入量（跨进程统计）
func (a *Archive) TotalVolume(ctx context.Context) (float64, error) {
	row := a.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(buy_amount), 0) FROM trade_records`)
	var v float64
	if err := row.Scan(&v); err != nil {
		return 0, fmt.Errorf("history: total volume: %w", err)
	}
	return v, nil
}
