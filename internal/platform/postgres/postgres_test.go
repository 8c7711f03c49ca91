package postgres

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

type driverName string

func (d driverName) DriverName() string { return string(d) }

func TestDSN(t *testing.T) {
	cfg := &Config{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "catalog", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=catalog sslmode=disable", cfg.DSN())
}

func TestIsPostgres(t *testing.T) {
	assert.True(t, IsPostgres(driverName("pgx")))
	assert.True(t, IsPostgres(driverName("postgres")))
	assert.False(t, IsPostgres(driverName("sqlite3")))
}

func TestErrorClassification(t *testing.T) {
	fk := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23503"})
	assert.True(t, IsForeignKeyViolation(fk))
	assert.False(t, IsUniqueViolation(fk))

	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsCheckViolation(&pgconn.PgError{Code: "23514"}))
	assert.True(t, IsSerializationFailure(&pgconn.PgError{Code: "40001"}))
	assert.False(t, IsSerializationFailure(fmt.Errorf("plain")))
}

func TestSchemaEmbedded(t *testing.T) {
	assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS recipe_ingredients")
	assert.Contains(t, schema, "recipe_ingredients_one_ref")
}
