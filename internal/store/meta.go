package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// 元数据键
const (
	MetaLastWorkbook = "last_workbook"
	MetaLastRun      = "last_run"
)

// GetMeta 获取元数据项，不存在时返回空串
func (s *Store) GetMeta(key string) (string, error) {
	var value string
	err := s.db.Get(&value, "SELECT value FROM meta WHERE key = ?", key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("get meta %s: %w", key, err)
	}
	return value, nil
}

// SetMeta 设置元数据项
func (s *Store) SetMeta(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	if err != nil {
		return fmt.Errorf("set meta %s: %w", key, err)
	}
	return nil
}

// AllMeta 获取所有元数据
func (s *Store) AllMeta() (map[string]string, error) {
	var rows []struct {
		Key   string `db:"key"`
		Value string `db:"value"`
	}
	if err := s.db.Select(&rows, "SELECT key, value FROM meta"); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Value
	}
	return out, nil
}
