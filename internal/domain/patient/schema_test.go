package patient

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// tableColumns extracts the column names a CREATE TABLE block in the core
// migration defines, so the repo's column lists can be checked against the
// schema the migrator actually applies.
func tableColumns(t *testing.T, table string) map[string]bool {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("..", "..", "..", "migrations", "001_core.sql"))
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	marker := "CREATE TABLE IF NOT EXISTS " + table + " ("
	start := strings.Index(string(raw), marker)
	if start < 0 {
		t.Fatalf("migration does not create table %s", table)
	}
	body := string(raw)[start+len(marker):]
	end := strings.Index(body, "\n);")
	if end < 0 {
		t.Fatalf("unterminated CREATE TABLE for %s", table)
	}
	cols := make(map[string]bool)
	for _, line := range strings.Split(body[:end], "\n") {
		fields := strings.Fields(strings.TrimSpace(line))
		if len(fields) < 2 || fields[0] == "CONSTRAINT" || fields[0] == "CHECK" {
			continue
		}
		cols[strings.ToLower(fields[0])] = true
	}
	return cols
}

func repoColumns(colList string) []string {
	var out []string
	for _, c := range strings.Split(colList, ",") {
		out = append(out, strings.TrimSpace(c))
	}
	return out
}

func TestMigrationCoversRepoColumns(t *testing.T) {
	cols := tableColumns(t, "patient")
	for _, c := range repoColumns(patientCols) {
		if !cols[c] {
			t.Errorf("patient repo reads column %q, missing from migration", c)
		}
	}

	histCols := tableColumns(t, "medical_history")
	for _, c := range []string{"id", "patient_id", "condition", "notes", "doctor_id", "recorded_at"} {
		if !histCols[c] {
			t.Errorf("medical_history repo reads column %q, missing from migration", c)
		}
	}
}
