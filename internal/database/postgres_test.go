package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMigrationVersion(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		expected int
	}{
		{"three digit prefix", "001_lessons_and_progress.sql", 1},
		{"wide prefix", "0012_add_index.sql", 12},
		{"no separator", "schema.sql", 0},
		{"non numeric prefix", "init_schema.sql", 0},
		{"negative prefix", "-1_bad.sql", 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, migrationVersion(tc.file))
		})
	}
}
