package audit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInsertStatement_PostgresDrivers(t *testing.T) {
	for _, driver := range []string{"postgres", "pgx"} {
		stmt := insertStatement(driver)
		assert.Contains(t, stmt, "$1", driver)
		assert.Contains(t, stmt, "$11", driver)
		assert.NotContains(t, stmt, "?", driver)
	}
}

func TestInsertStatement_QuestionMarkDrivers(t *testing.T) {
	for _, driver := range []string{"mysql", "sqlite3"} {
		stmt := insertStatement(driver)
		assert.Equal(t, insertColumnCount, strings.Count(stmt, "?"), driver)
		assert.NotContains(t, stmt, "$1", driver)
	}
}
