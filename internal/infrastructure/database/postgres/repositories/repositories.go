// Package repositories contains the PostgreSQL implementations of the
// domain persistence ports and of the revision pipeline store.
package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/scenedex/scenedex/internal/domain/element"
	"github.com/scenedex/scenedex/internal/domain/script"
	"github.com/scenedex/scenedex/pkg/types/common"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx so the row mappers
// work inside and outside transactions.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// touch stamps audit timestamps before a write.  CreatedAt is preserved when
// the entity was already persisted once.
func touch(b *common.BaseEntity) {
	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}

const scriptColumns = `id, project_id, title, storage_key, uploaded_by,
	COALESCE(parent_id, ''), revision_number, revision_color, status,
	page_count, error_detail, created_at, updated_at`

func scanScript(row pgx.Row) (*script.Script, error) {
	var s script.Script
	err := row.Scan(
		&s.ID, &s.ProjectID, &s.Title, &s.StorageKey, &s.UploadedBy,
		&s.ParentID, &s.RevisionNumber, &s.RevisionColor, &s.Status,
		&s.PageCount, &s.ErrorDetail, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

const elementColumns = `id, project_id, script_id, name, type, status, source,
	department, highlight_page, highlight_text, created_at, updated_at`

func scanElement(row pgx.Row) (*element.Element, error) {
	var el element.Element
	err := row.Scan(
		&el.ID, &el.ProjectID, &el.ScriptID, &el.Name, &el.Type, &el.Status,
		&el.Source, &el.Department, &el.HighlightPage, &el.HighlightText,
		&el.CreatedAt, &el.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &el, nil
}

const matchColumns = `id, script_id, match_status, detected_name, detected_type,
	detected_page, detected_highlight_text, COALESCE(old_element_id, ''),
	similarity, user_decision, resolved, created_at, updated_at`

func scanMatch(row pgx.Row) (*script.RevisionMatch, error) {
	var m script.RevisionMatch
	err := row.Scan(
		&m.ID, &m.ScriptID, &m.MatchStatus, &m.DetectedName, &m.DetectedType,
		&m.DetectedPage, &m.DetectedHighlightText, &m.OldElementID,
		&m.Similarity, &m.UserDecision, &m.Resolved,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// nullable maps the empty string to NULL for columns with foreign keys.
func nullable(id common.ID) any {
	if id.IsZero() {
		return nil
	}
	return id
}
