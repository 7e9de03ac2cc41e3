package migration

import (
	"errors"
	"testing"
	"testing/fstest"
)

func TestFSScanner_Scan(t *testing.T) {
	t.Parallel()

	t.Run("orders migrations numerically and reads descriptions", func(t *testing.T) {
		t.Parallel()
		fsys := fstest.MapFS{
			"010_add_index.sql":      {Data: []byte("CREATE INDEX idx_a ON a (id);")},
			"002_second.sql":         {Data: []byte("-- Description: add table b\nCREATE TABLE b (id TEXT);")},
			"001_initial_schema.sql": {Data: []byte("CREATE TABLE a (id TEXT PRIMARY KEY);")},
			"README.md":              {Data: []byte("ignored")},
		}

		migrations, err := NewFSScanner(fsys, ".").Scan()
		if err != nil {
			t.Fatalf("Scan returned error: %v", err)
		}
		if len(migrations) != 3 {
			t.Fatalf("expected 3 migrations, got %d", len(migrations))
		}
		if migrations[0].Version != "001" || migrations[1].Version != "002" || migrations[2].Version != "010" {
			t.Fatalf("unexpected order: %s, %s, %s", migrations[0].Version, migrations[1].Version, migrations[2].Version)
		}
		if migrations[0].Description != "initial schema" {
			t.Fatalf("expected description from filename, got %q", migrations[0].Description)
		}
		if migrations[1].Description != "add table b" {
			t.Fatalf("expected description from content, got %q", migrations[1].Description)
		}
		if migrations[0].Checksum == "" || migrations[0].Checksum == migrations[1].Checksum {
			t.Fatalf("expected distinct checksums")
		}
	})

	t.Run("rejects duplicate versions", func(t *testing.T) {
		t.Parallel()
		fsys := fstest.MapFS{
			"001_a.sql": {Data: []byte("CREATE TABLE a (id TEXT);")},
			"1_b.sql":   {Data: []byte("CREATE TABLE b (id TEXT);")},
		}

		_, err := NewFSScanner(fsys, ".").Scan()
		if !errors.Is(err, ErrDuplicateVersion) {
			t.Fatalf("expected ErrDuplicateVersion, got %v", err)
		}
	})

	t.Run("rejects malformed files", func(t *testing.T) {
		t.Parallel()
		cases := map[string]string{
			"001_unbalanced.sql": "CREATE TABLE a (id TEXT;",
			"001_unterminated.sql": "INSERT INTO a VALUES ('x);",
			"001_empty.sql":      "-- nothing here\n",
			"abc_bad_name.sql":   "CREATE TABLE a (id TEXT);",
		}
		for name, content := range cases {
			fsys := fstest.MapFS{name: {Data: []byte(content)}}
			_, err := NewFSScanner(fsys, ".").Scan()
			if !errors.Is(err, ErrInvalidMigrationFile) {
				t.Fatalf("%s: expected ErrInvalidMigrationFile, got %v", name, err)
			}
		}
	})
}

func TestSplitStatements(t *testing.T) {
	t.Parallel()

	statements := splitStatements(`
-- Description: demo
CREATE TABLE a (id TEXT);

-- comment between statements
CREATE UNIQUE INDEX idx ON a (id) WHERE id <> '';
`)
	if len(statements) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(statements), statements)
	}
	if statements[0] != "CREATE TABLE a (id TEXT)" {
		t.Fatalf("unexpected first statement %q", statements[0])
	}
}
