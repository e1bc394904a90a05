package message

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const historyQ = `SELECT sender, body, ts FROM messages
	            WHERE room = $1 ORDER BY ts ASC, id ASC LIMIT $2`

func newService(t *testing.T) (IMessageService, sqlmock.Sqlmock, redismock.ClientMock) {
	t.Helper()
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	rdc, rdMock := redismock.NewClientMock()
	return NewMessageService(rdc, db, 10000), dbMock, rdMock
}

func TestAppendWritesToStream(t *testing.T) {
	svc, _, rdMock := newService(t)

	rdMock.ExpectXAdd(&redis.XAddArgs{
		Stream: Stream,
		MaxLen: 10000,
		Approx: true,
		Values: []interface{}{"room", "lobby", "sender", "Ann", "body", "hi", "ts", int64(1700000000000)},
	}).SetVal("1700000000000-0")

	err := svc.Append(context.Background(), "lobby", "Ann", "hi", 1700000000000)
	require.NoError(t, err)
	require.NoError(t, rdMock.ExpectationsWereMet())
}

func TestListHistoryAscending(t *testing.T) {
	svc, dbMock, _ := newService(t)

	dbMock.ExpectQuery(regexp.QuoteMeta(historyQ)).
		WithArgs("lobby", 10).
		WillReturnRows(sqlmock.NewRows([]string{"sender", "body", "ts"}).
			AddRow("Ann", "hi", int64(100)).
			AddRow("Bob", "yo", int64(200)))

	list, err := svc.ListHistory(context.Background(), "lobby", 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, MessageDTO{Sender: "Ann", Body: "hi", TS: 100}, list[0])
	assert.Equal(t, MessageDTO{Sender: "Bob", Body: "yo", TS: 200}, list[1])
}

func TestListHistoryDefaultLimit(t *testing.T) {
	svc, dbMock, _ := newService(t)

	dbMock.ExpectQuery(regexp.QuoteMeta(historyQ)).
		WithArgs("lobby", defaultHistoryLimit).
		WillReturnRows(sqlmock.NewRows([]string{"sender", "body", "ts"}))

	_, err := svc.ListHistory(context.Background(), "lobby", 0)
	require.NoError(t, err)
	require.NoError(t, dbMock.ExpectationsWereMet())
}

func TestListHistoryClampsLimit(t *testing.T) {
	svc, dbMock, _ := newService(t)

	dbMock.ExpectQuery(regexp.QuoteMeta(historyQ)).
		WithArgs("lobby", maxHistoryLimit).
		WillReturnRows(sqlmock.NewRows([]string{"sender", "body", "ts"}))

	_, err := svc.ListHistory(context.Background(), "lobby", 5000)
	require.NoError(t, err)
	require.NoError(t, dbMock.ExpectationsWereMet())
}

func TestListHistoryUnknownRoomIsEmptyNotError(t *testing.T) {
	svc, dbMock, _ := newService(t)

	dbMock.ExpectQuery(regexp.QuoteMeta(historyQ)).
		WithArgs("ghost-room", defaultHistoryLimit).
		WillReturnRows(sqlmock.NewRows([]string{"sender", "body", "ts"}))

	list, err := svc.ListHistory(context.Background(), "ghost-room", 0)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}
