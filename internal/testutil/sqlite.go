// Package testutil provides an in-memory catalog database for repository and use case tests.
package testutil

import (
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// schema mirrors internal/platform/postgres/schema.sql in SQLite terms.
// Decimals are stored as TEXT so they round-trip exactly.
const schema = `
CREATE TABLE units (
    unit_id                   INTEGER PRIMARY KEY AUTOINCREMENT,
    unit_name                 TEXT      NOT NULL UNIQUE,
    unit_type                 TEXT      NOT NULL,
    conversion_factor_to_base TEXT      NOT NULL,
    created_at                TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at                TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE products (
    product_id         INTEGER PRIMARY KEY AUTOINCREMENT,
    product_name       TEXT      NOT NULL,
    category           TEXT,
    default_unit_id    INTEGER,
    default_variant_id INTEGER,
    created_at         TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at         TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE product_variants (
    variant_id   INTEGER PRIMARY KEY AUTOINCREMENT,
    product_id   INTEGER   NOT NULL,
    brand_id     INTEGER,
    supplier_id  INTEGER,
    package_size TEXT      NOT NULL,
    unit_id      INTEGER   NOT NULL,
    upc          TEXT,
    created_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE product_prices (
    price_id   INTEGER PRIMARY KEY AUTOINCREMENT,
    variant_id INTEGER   NOT NULL,
    price      TEXT      NOT NULL,
    price_date TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE recipes (
    recipe_id    INTEGER PRIMARY KEY AUTOINCREMENT,
    recipe_name  TEXT      NOT NULL,
    instructions TEXT,
    yield        TEXT,
    created_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE recipe_ingredients (
    recipe_ingredient_id INTEGER PRIMARY KEY AUTOINCREMENT,
    recipe_id            INTEGER NOT NULL,
    product_id           INTEGER,
    sub_recipe_id        INTEGER,
    variant_id           INTEGER,
    quantity             TEXT    NOT NULL,
    unit_id              INTEGER NOT NULL
);
`

// NewDB opens a fresh in-memory SQLite database with the catalog schema.
// The pool holds a single connection so every query sees the same database;
// code under test must therefore run its reads through an open transaction.
func NewDB(t testing.TB) *sqlx.DB {
	t.Helper()

	db, err := sqlx.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("apply schema: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
