package store

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationNamesAreOrderedAndEmbedded(t *testing.T) {
	names, err := MigrationNames()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "0001_init.up.sql", names[0])

	body, err := embeddedMigrations.ReadFile(migrationsDir + "/" + names[0])
	require.NoError(t, err)
	assert.Contains(t, string(body), "UNIQUE (client_id, due_date)")
	assert.True(t, strings.Contains(string(body), "message_attempts BETWEEN 0 AND 3"))
}
