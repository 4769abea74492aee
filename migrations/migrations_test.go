package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilesAreOrderedAndEmbedded(t *testing.T) {
	names, err := Files()
	require.NoError(t, err)
	require.Equal(t, []string{"0001_create_qr_codes.sql", "0002_create_scans.sql"}, names)

	for _, name := range names {
		content, err := files.ReadFile(name)
		require.NoError(t, err)
		assert.NotEmpty(t, content)
	}
}

func TestScansTableHasNoCascade(t *testing.T) {
	content, err := files.ReadFile("0002_create_scans.sql")
	require.NoError(t, err)
	assert.NotContains(t, string(content), "ON DELETE CASCADE (")
	assert.Contains(t, string(content), "REFERENCES qr_codes (id)")
}
