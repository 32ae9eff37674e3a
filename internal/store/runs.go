package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"stockrecon/internal/model"
)

// 运行状态
const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// ErrRunNotFound 运行记录不存在
var ErrRunNotFound = errors.New("run not found")

// Run 运行记录
type Run struct {
	ID         string     `db:"id" json:"id"`
	File       string     `db:"file" json:"file"`
	Sheet      string     `db:"sheet" json:"sheet"`
	DryRun     bool       `db:"dry_run" json:"dryRun"`
	Status     string     `db:"status" json:"status"`
	Stage      string     `db:"stage" json:"stage"`
	DataRows   int        `db:"data_rows" json:"dataRows"`
	Matched    int        `db:"matched" json:"matched"`
	Unmatched  int        `db:"unmatched" json:"unmatched"`
	Critical   int        `db:"critical" json:"critical"`
	Severe     int        `db:"severe" json:"severe"`
	Moderate   int        `db:"moderate" json:"moderate"`
	OutputPath string     `db:"output_path" json:"outputPath,omitempty"`
	BackupPath string     `db:"backup_path" json:"backupPath,omitempty"`
	Error      string     `db:"error_message" json:"error,omitempty"`
	StartedAt  time.Time  `db:"started_at" json:"startedAt"`
	FinishedAt *time.Time `db:"finished_at" json:"finishedAt,omitempty"`
}

// UnmatchedRow 持久化的未匹配行
type UnmatchedRow struct {
	Source  string `db:"source" json:"source"`
	Line    int    `db:"line" json:"line"`
	RawCode string `db:"raw_code" json:"rawCode"`
	Reason  string `db:"reason" json:"reason"`
}

const runColumns = `id, file, sheet, dry_run, status, stage, data_rows, matched, unmatched,
	critical, severe, moderate, output_path, backup_path, error_message, started_at, finished_at`

// CreateRun 创建运行记录
func (s *Store) CreateRun(id, file string, dryRun bool) error {
	_, err := s.db.Exec(`
		INSERT INTO runs (id, file, dry_run, status, started_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, file, dryRun, StatusRunning, time.Now())
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// FinishRun 写入运行结果、未匹配行与缺货行
func (s *Store) FinishRun(report *model.RunReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	status := StatusSuccess
	if report.Error != "" {
		status = StatusFailed
	}
	matched, unmatched := 0, 0
	for _, r := range report.Reconcile {
		matched += r.Matched()
		unmatched += len(r.Unmatched)
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		UPDATE runs SET
			sheet = ?, status = ?, stage = ?, data_rows = ?, matched = ?, unmatched = ?,
			critical = ?, severe = ?, moderate = ?, output_path = ?, backup_path = ?,
			error_message = ?, report_json = ?, finished_at = ?
		WHERE id = ?
	`, report.Sheet, status, string(report.LastStage()), report.Range.Len(), matched, unmatched,
		report.Classify.Counts[model.CategoryCritical], report.Classify.Counts[model.CategorySevere],
		report.Classify.Counts[model.CategoryModerate], report.Output, report.Backup,
		report.Error, string(payload), time.Now(), report.RunID)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, report.RunID)
	}

	for _, r := range report.Reconcile {
		for _, u := range r.Unmatched {
			if _, err := tx.Exec(`
				INSERT INTO run_unmatched (run_id, source, line, raw_code, reason)
				VALUES (?, ?, ?, ?, ?)
			`, report.RunID, r.Source, u.Line, u.RawCode, string(u.Reason)); err != nil {
				return fmt.Errorf("failed to insert unmatched row: %w", err)
			}
		}
	}
	for _, o := range report.Classify.Shortages() {
		if _, err := tx.Exec(`
			INSERT INTO run_shortages (run_id, row_no, code, name, category, baseline, metric)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, report.RunID, o.Row, o.Code, o.Name, string(o.Category), o.Baseline, o.Metric); err != nil {
			return fmt.Errorf("failed to insert shortage row: %w", err)
		}
	}
	return tx.Commit()
}

// ListRuns 最近的运行记录，按开始时间倒序
func (s *Store) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	runs := []Run{}
	err := s.db.Select(&runs, `SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// GetRun 获取运行记录
func (s *Store) GetRun(id string) (*Run, error) {
	var run Run
	err := s.db.Get(&run, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &run, nil
}

// GetReport 读取运行的完整报告，运行未结束时报告为空
func (s *Store) GetReport(id string) (*model.RunReport, error) {
	var payload string
	err := s.db.Get(&payload, `SELECT report_json FROM runs WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return nil, err
	}
	if payload == "" {
		return nil, nil
	}
	var report model.RunReport
	if err := json.Unmarshal([]byte(payload), &report); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &report, nil
}

// ListUnmatched 运行的未匹配行
func (s *Store) ListUnmatched(id string) ([]UnmatchedRow, error) {
	rows := []UnmatchedRow{}
	err := s.db.Select(&rows, `
		SELECT source, line, raw_code, reason FROM run_unmatched
		WHERE run_id = ? ORDER BY id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list unmatched: %w", err)
	}
	return rows, nil
}

// ListShortages 运行的缺货提醒行
func (s *Store) ListShortages(id string) ([]model.RowOutcome, error) {
	var rows []struct {
		Row      int     `db:"row_no"`
		Code     string  `db:"code"`
		Name     string  `db:"name"`
		Category string  `db:"category"`
		Baseline float64 `db:"baseline"`
		Metric   float64 `db:"metric"`
	}
	err := s.db.Select(&rows, `
		SELECT row_no, code, name, category, baseline, metric FROM run_shortages
		WHERE run_id = ? ORDER BY row_no
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list shortages: %w", err)
	}
	out := make([]model.RowOutcome, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.RowOutcome{
			Row:      r.Row,
			Code:     r.Code,
			Name:     r.Name,
			Category: model.Category(r.Category),
			Baseline: r.Baseline,
			Metric:   r.Metric,
		})
	}
	return out, nil
}
