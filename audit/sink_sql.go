package audit

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
)

// Schema for the audit_entries table. Works on postgres, mysql and
// sqlite via the shared database package.
const SQLSinkSchema = `
CREATE TABLE IF NOT EXISTS audit_entries (
	id            VARCHAR(36) PRIMARY KEY,
	tenant_id     VARCHAR(255) NOT NULL,
	operation     VARCHAR(16)  NOT NULL,
	resource_kind VARCHAR(64)  NOT NULL,
	resource_id   VARCHAR(255) NOT NULL,
	username      VARCHAR(255) NOT NULL,
	success       BOOLEAN      NOT NULL,
	error_message TEXT,
	error_kind    VARCHAR(32),
	ts            TIMESTAMP    NOT NULL,
	ip_address    VARCHAR(64)
)`

const insertColumnCount = 11

// SQLSink persists audit entries into a relational table.
type SQLSink struct {
	db     *sql.DB
	insert string
}

var _ Sink = (*SQLSink)(nil)

// NewSQLSink creates the sink and ensures the table exists. The driver
// name selects the placeholder style of the INSERT; postgres drivers
// ("postgres", "pgx") use numbered placeholders, everything else uses
// question marks.
func NewSQLSink(ctx context.Context, db *sql.DB, driver string) (*SQLSink, error) {
	if _, err := db.ExecContext(ctx, SQLSinkSchema); err != nil {
		return nil, err
	}
	return &SQLSink{db: db, insert: insertStatement(driver)}, nil
}

func insertStatement(driver string) string {
	placeholders := make([]string, insertColumnCount)
	for i := range placeholders {
		switch driver {
		case "postgres", "pgx":
			placeholders[i] = "$" + strconv.Itoa(i+1)
		default:
			placeholders[i] = "?"
		}
	}
	return `INSERT INTO audit_entries
	 (id, tenant_id, operation, resource_kind, resource_id, username, success, error_message, error_kind, ts, ip_address)
	 VALUES (` + strings.Join(placeholders, ", ") + `)`
}

func (s *SQLSink) Write(ctx context.Context, entry Entry) error {
	_, err := s.db.ExecContext(ctx, s.insert,
		entry.ID, entry.TenantID, string(entry.Operation), entry.ResourceKind,
		entry.ResourceID, entry.Username, entry.Success, entry.ErrorMessage,
		entry.ErrorKind, entry.Timestamp, entry.IPAddress,
	)
	return err
}
