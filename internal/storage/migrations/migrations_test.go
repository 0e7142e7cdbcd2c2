package migrations

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingCH struct {
	stmts []string
	err   error
}

func (r *recordingCH) Exec(ctx context.Context, query string, args ...any) error {
	r.stmts = append(r.stmts, query)
	return r.err
}

type recordingPG struct {
	scripts []string
}

func (r *recordingPG) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	r.scripts = append(r.scripts, sql)
	return pgconn.CommandTag{}, nil
}

func TestSplitStatements(t *testing.T) {
	input := `
-- comment; with semicolon
CREATE TABLE a (x UInt8);

CREATE TABLE b (
    y String
) ENGINE = Memory;
`
	stmts := splitStatements(input)

	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE TABLE a (x UInt8)", stmts[0])
	assert.Contains(t, stmts[1], "ENGINE = Memory")
}

func TestValidateNoSemicolonInStrings(t *testing.T) {
	assert.NoError(t, validateNoSemicolonInStrings(`SELECT 'a''b'; SELECT 1;`))
	assert.Error(t, validateNoSemicolonInStrings(`SELECT 'a;b'`))
}

func TestRunClickhouseMigrations_Embedded(t *testing.T) {
	db := &recordingCH{}

	require.NoError(t, RunClickhouseMigrations(context.Background(), db))

	require.NotEmpty(t, db.stmts)
	assert.Contains(t, db.stmts[0], "CREATE TABLE IF NOT EXISTS gem_scores")
}

func TestRunClickhouseMigrations_PropagatesError(t *testing.T) {
	db := &recordingCH{err: errors.New("boom")}
	assert.Error(t, RunClickhouseMigrations(context.Background(), db))
}

func TestRunPostgresMigrations_Embedded(t *testing.T) {
	db := &recordingPG{}

	require.NoError(t, RunPostgresMigrations(context.Background(), db))

	require.Len(t, db.scripts, 1)
	assert.Contains(t, db.scripts[0], "CREATE TABLE IF NOT EXISTS token_sightings")
}
