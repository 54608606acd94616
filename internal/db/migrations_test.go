package db

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readMigration(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("migrations", name))
	require.NoError(t, err)
	return string(data)
}

func TestMigrationsComeInPairs(t *testing.T) {
	ups, err := filepath.Glob(filepath.Join("migrations", "*.up.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, ups)
	for _, up := range ups {
		down := up[:len(up)-len(".up.sql")] + ".down.sql"
		_, err := os.Stat(down)
		assert.NoError(t, err, "missing down migration for %s", filepath.Base(up))
	}
}

func TestUserEmailIsUniqueIgnoringCase(t *testing.T) {
	up := readMigration(t, "000002_users_email_ci.up.sql")
	assert.Regexp(t, regexp.MustCompile(`(?i)CREATE UNIQUE INDEX .*users_email_lower_key\s+ON users \(lower\(email\)\)`), up)

	down := readMigration(t, "000002_users_email_ci.down.sql")
	assert.Contains(t, down, "DROP INDEX IF EXISTS users_email_lower_key")
}
