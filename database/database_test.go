package database_test

import (
	"testing"

	"github.com/bignyap/tenantstore/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDriver(t *testing.T) {
	driver, err := database.ParseDriver("Postgres")
	require.NoError(t, err)
	assert.Equal(t, database.PostgresDriver, driver)

	driver, err = database.ParseDriver("sqlite")
	require.NoError(t, err)
	assert.Equal(t, database.SQLiteDriver, driver)

	_, err = database.ParseDriver("oracle")
	assert.Error(t, err)
}

func TestConnectionStringDSN(t *testing.T) {
	cs := &database.ConnectionString{
		Host:     "db.internal",
		Port:     "5432",
		User:     "audit",
		Password: "pw",
		Database: "tenantstore",
	}

	postgres := cs.DSN(database.PostgresDriver)
	assert.Contains(t, postgres, "host=db.internal")
	assert.Contains(t, postgres, "dbname=tenantstore")

	cs.Port = "3306"
	mysql := cs.DSN(database.MySQLDriver)
	assert.Equal(t, "audit:pw@tcp(db.internal:3306)/tenantstore", mysql)

	sqlite := (&database.ConnectionString{Database: "audit.db"}).DSN(database.SQLiteDriver)
	assert.Equal(t, "audit.db", sqlite)
}

func TestNewConnection_RequiresConnectionString(t *testing.T) {
	_, err := database.NewConnection(database.PostgresDriver, nil, nil)
	assert.Error(t, err)

	conn, err := database.NewConnection(database.SQLiteDriver, &database.ConnectionString{Database: ":memory:"}, nil)
	require.NoError(t, err)
	assert.Equal(t, database.DefaultPoolConfig(), conn.PoolConfig)
}
