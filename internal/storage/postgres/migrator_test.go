package postgres

import (
	"testing"
	"testing/fstest"
)

func TestReadMigrations_ParsesPairs(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/migrations/0001_first.up.sql":    {Data: []byte("CREATE TABLE a (id TEXT)")},
		"sql/migrations/0001_first.down.sql":  {Data: []byte("DROP TABLE a")},
		"sql/migrations/0002_second.up.sql":   {Data: []byte("CREATE TABLE b (id TEXT)")},
		"sql/migrations/0002_second.down.sql": {Data: []byte("DROP TABLE b")},
	}

	migrations, err := readMigrations(fsys)
	if err != nil {
		t.Fatalf("readMigrations: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(migrations))
	}
	if migrations[0].Version != 1 || migrations[0].Name != "first" {
		t.Fatalf("unexpected first migration: %+v", migrations[0])
	}
	if migrations[1].Version != 2 || migrations[1].UpSQL == "" || migrations[1].DownSQL == "" {
		t.Fatalf("unexpected second migration: %+v", migrations[1])
	}
}

func TestReadMigrations_Errors(t *testing.T) {
	cases := []struct {
		name string
		fsys fstest.MapFS
	}{
		{
			name: "missing down pair",
			fsys: fstest.MapFS{
				"sql/migrations/0001_first.up.sql": {Data: []byte("CREATE TABLE a (id TEXT)")},
			},
		},
		{
			name: "empty body",
			fsys: fstest.MapFS{
				"sql/migrations/0001_first.up.sql":   {Data: []byte("   ")},
				"sql/migrations/0001_first.down.sql": {Data: []byte("DROP TABLE a")},
			},
		},
		{
			name: "name mismatch",
			fsys: fstest.MapFS{
				"sql/migrations/0001_first.up.sql":   {Data: []byte("CREATE TABLE a (id TEXT)")},
				"sql/migrations/0001_other.down.sql": {Data: []byte("DROP TABLE a")},
			},
		},
		{
			name: "no files",
			fsys: fstest.MapFS{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := readMigrations(tc.fsys); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

// Встроенные миграции должны парситься без ошибок.
func TestReadMigrations_Embedded(t *testing.T) {
	migrations, err := readMigrations(migrationsFS)
	if err != nil {
		t.Fatalf("embedded migrations are broken: %v", err)
	}
	if len(migrations) == 0 {
		t.Fatal("expected at least one embedded migration")
	}
}
