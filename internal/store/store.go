// Package store 运行历史的 SQLite 存储
package store

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaFS embed.FS

// Store 运行记录、未匹配行、缺货行与元数据
type Store struct {
	db *sqlx.DB
}

// dsn 开启外键，写冲突时等待而不是立即报 busy
func dsn(path string) string {
	return path + "?_foreign_keys=on&_busy_timeout=5000"
}

// New 打开（必要时创建）运行历史数据库
func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sqlx.Connect("sqlite3", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open run history %s: %w", dbPath, err)
	}
	// 同一时间只有一个写者：HTTP 与 CLI 的运行共用这一个连接
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// migrate 建表，语句均为 IF NOT EXISTS，可重复执行
func (s *Store) migrate() error {
	ddl, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	if _, err := s.db.Exec(string(ddl)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close 关闭数据库
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
