package repo

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationFiles_Ordered(t *testing.T) {
	names, err := migrationFiles()
	require.NoError(t, err)

	assert.Equal(t, []string{
		"001_leads.sql",
		"002_email_templates.sql",
		"003_unsubscribe_tokens.sql",
	}, names)
}

func TestIsDuplicateKey(t *testing.T) {
	assert.True(t, isDuplicateKey(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isDuplicateKey(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isDuplicateKey(errors.New("boom")))
	assert.False(t, isDuplicateKey(nil))
}

func TestNullString(t *testing.T) {
	assert.Nil(t, nullString(""))
	assert.Equal(t, "x", *nullString("x"))
	assert.Equal(t, "", fromNull(nil))
	assert.Equal(t, "x", fromNull(nullString("x")))
}
