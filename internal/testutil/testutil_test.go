package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMigrationsDir_HasSchemaFiles(t *testing.T) {
	dir, err := MigrationsDir()
	if err != nil {
		t.Fatalf("MigrationsDir: %v", err)
	}
	for _, name := range []string{"000001_users.up.sql", "000002_bills.up.sql", "000002_bills.down.sql", "000001_users.down.sql"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing migration %s: %v", name, err)
		}
	}
}
