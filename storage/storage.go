package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"mvn-audit/osv"
)

// Storage caches vulnerability records and keeps the latest findings per purl.
// Records older than TTL are treated as missing; a zero TTL never expires.
type Storage struct {
	DB  *sql.DB
	TTL time.Duration
}

func (s *Storage) InitSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS vulnerabilities (
		id TEXT PRIMARY KEY,
		summary TEXT,
		fixed_version TEXT,
		modified TEXT,
		record TEXT NOT NULL,
		fetched_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS findings (
		purl TEXT NOT NULL,
		vuln_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		PRIMARY KEY(purl, vuln_id)
	);`
	_, err := s.DB.ExecContext(ctx, query)
	return err
}

const upsertVulnerabilityQuery = `
  INSERT INTO vulnerabilities (id, summary, fixed_version, modified, record, fetched_at)
  VALUES (?, ?, ?, ?, ?, ?)
  ON CONFLICT(id)
  DO UPDATE SET
    summary = excluded.summary,
    fixed_version = excluded.fixed_version,
    modified = excluded.modified,
    record = excluded.record,
    fetched_at = excluded.fetched_at;
`

func vulnerabilityArgs(v osv.Vulnerability, fetchedAt time.Time) ([]any, error) {
	record, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode vulnerability %s: %w", v.ID, err)
	}
	fixed, _ := v.FixedVersion()
	return []any{
		v.ID,
		v.Summary,
		fixed,
		v.Modified.UTC().Format(time.RFC3339),
		string(record),
		fetchedAt.Unix(),
	}, nil
}

func (s *Storage) UpsertVulnerabilities(ctx context.Context, vulns []osv.Vulnerability) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertVulnerabilityQuery)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, v := range vulns {
		args, err := vulnerabilityArgs(v, now)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetVulnerability returns sql.ErrNoRows for unknown ids. It ignores TTL.
func (s *Storage) GetVulnerability(ctx context.Context, id string) (osv.Vulnerability, error) {
	var (
		v      osv.Vulnerability
		record string
	)
	err := s.DB.QueryRowContext(ctx,
		`SELECT record FROM vulnerabilities WHERE id=?`, id,
	).Scan(&record)
	if err != nil {
		return v, err
	}

	err = json.Unmarshal([]byte(record), &v)
	return v, err
}

// GetVulnerabilitiesMap returns the fresh cached records among ids, keyed by id.
func (s *Storage) GetVulnerabilitiesMap(ctx context.Context, ids []string) (map[string]osv.Vulnerability, error) {
	if len(ids) == 0 {
		return map[string]osv.Vulnerability{}, nil
	}

	args := make([]any, 0, len(ids)+1)
	for _, id := range ids {
		args = append(args, id)
	}

	query := fmt.Sprintf(`
		SELECT id, record
		FROM vulnerabilities
		WHERE id IN (%s)`, strings.TrimSuffix(strings.Repeat("?,", len(ids)), ","))
	if s.TTL > 0 {
		query += " AND fetched_at >= ?"
		args = append(args, time.Now().Add(-s.TTL).Unix())
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]osv.Vulnerability)
	for rows.Next() {
		var id, record string
		if err := rows.Scan(&id, &record); err != nil {
			return nil, err
		}
		var v osv.Vulnerability
		if err := json.Unmarshal([]byte(record), &v); err != nil {
			return nil, fmt.Errorf("failed to decode cached vulnerability %s: %w", id, err)
		}
		result[id] = v
	}

	return result, rows.Err()
}

func (s *Storage) ListVulnerabilityIDs(ctx context.Context) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id FROM vulnerabilities ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Storage) DeleteVulnerability(ctx context.Context, id string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM vulnerabilities WHERE id=?`, id)
	return err
}

// ReplaceFindings overwrites the findings of every audited purl. Purls
// without vulnerabilities end up with no rows.
func (s *Storage) ReplaceFindings(ctx context.Context, purls []string, result map[string][]osv.Vulnerability) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	del, err := tx.PrepareContext(ctx, `DELETE FROM findings WHERE purl=?`)
	if err != nil {
		return err
	}
	defer del.Close()

	ins, err := tx.PrepareContext(ctx, `
		INSERT INTO findings (purl, vuln_id, position) VALUES (?, ?, ?)
		ON CONFLICT(purl, vuln_id) DO NOTHING`)
	if err != nil {
		return err
	}
	defer ins.Close()

	seen := make(map[string]bool, len(purls))
	for _, purl := range purls {
		if seen[purl] {
			continue
		}
		seen[purl] = true

		if _, err := del.ExecContext(ctx, purl); err != nil {
			return err
		}
		for i, v := range result[purl] {
			if _, err := ins.ExecContext(ctx, purl, v.ID, i); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

func (s *Storage) ListFindingsFiltered(ctx context.Context, purl string) ([]Finding, error) {
	query := `
		SELECT f.purl, f.vuln_id, f.position, COALESCE(v.summary, ''), COALESCE(v.fixed_version, '')
		FROM findings f
		LEFT JOIN vulnerabilities v ON v.id = f.vuln_id
		WHERE 1=1
	`
	var args []any

	if purl != "" {
		query += " AND f.purl LIKE ?"
		args = append(args, "%"+purl+"%")
	}

	query += " ORDER BY f.purl, f.position"

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Finding
	for rows.Next() {
		var f Finding
		if err := rows.Scan(&f.Purl, &f.VulnerabilityID, &f.Position, &f.Summary, &f.FixedVersion); err != nil {
			return nil, err
		}
		list = append(list, f)
	}
	return list, rows.Err()
}
