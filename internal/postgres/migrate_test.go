package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationVersions(t *testing.T) {
	versions, err := MigrationVersions()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"000001_create_organizations",
		"000002_create_bills",
		"000003_create_bill_workflows",
	}, versions)

	for _, v := range versions {
		body, err := migrationFiles.ReadFile("migrations/" + v + ".sql")
		require.NoError(t, err)
		assert.NotEmpty(t, body)
	}
}
