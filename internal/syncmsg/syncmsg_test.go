package syncmsg

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const insQ = `INSERT INTO messages (id, room, sender, body, ts)
	             VALUES ($1, $2, $3, $4, $5)
	             ON CONFLICT (id) DO NOTHING`

func TestPersistBatch(t *testing.T) {
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	dbMock.ExpectBegin()
	dbMock.ExpectExec(regexp.QuoteMeta(insQ)).
		WithArgs("1-0", "lobby", "Ann", "hi", int64(100)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	dbMock.ExpectExec(regexp.QuoteMeta(insQ)).
		WithArgs("2-0", "lobby", "Bob", "yo", int64(200)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	dbMock.ExpectCommit()

	msgs := []redis.XMessage{
		{ID: "1-0", Values: map[string]interface{}{
			"room": "lobby", "sender": "Ann", "body": "hi", "ts": "100"}},
		{ID: "2-0", Values: map[string]interface{}{
			"room": "lobby", "sender": "Bob", "body": "yo", "ts": "200"}},
	}
	require.NoError(t, persist(context.Background(), db, msgs))
	require.NoError(t, dbMock.ExpectationsWereMet())
}

func TestPersistRollsBackOnInsertError(t *testing.T) {
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	dbMock.ExpectBegin()
	dbMock.ExpectExec(regexp.QuoteMeta(insQ)).
		WithArgs("1-0", "lobby", "Ann", "hi", int64(100)).
		WillReturnError(errors.New("connection reset"))
	dbMock.ExpectRollback()

	msgs := []redis.XMessage{
		{ID: "1-0", Values: map[string]interface{}{
			"room": "lobby", "sender": "Ann", "body": "hi", "ts": "100"}},
	}
	assert.Error(t, persist(context.Background(), db, msgs))
	require.NoError(t, dbMock.ExpectationsWereMet())
}

func TestPersistEmptyBatchCommits(t *testing.T) {
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	dbMock.ExpectBegin()
	dbMock.ExpectCommit()

	require.NoError(t, persist(context.Background(), db, nil))
	require.NoError(t, dbMock.ExpectationsWereMet())
}
