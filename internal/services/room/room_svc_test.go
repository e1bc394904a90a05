package room

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v9"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	existsQ = `SELECT EXISTS (SELECT 1 FROM rooms WHERE name = $1)`
	insertQ = `INSERT INTO rooms (name, access_type, credential) VALUES ($1, $2, $3)`
	getQ    = `SELECT name, access_type, coalesce(credential, '') FROM rooms WHERE name = $1`
	listQ   = `SELECT name, access_type FROM rooms ORDER BY name ASC`
)

func newService(t *testing.T) (IRoomService, sqlmock.Sqlmock, redismock.ClientMock) {
	t.Helper()
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	rdc, rdMock := redismock.NewClientMock()
	return NewRoomService(rdc, db), dbMock, rdMock
}

func TestCreateRoomOpen(t *testing.T) {
	svc, dbMock, rdMock := newService(t)

	dbMock.ExpectQuery(regexp.QuoteMeta(existsQ)).
		WithArgs("lobby").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	dbMock.ExpectExec(regexp.QuoteMeta(insertQ)).
		WithArgs("lobby", AccessOpen, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	rdMock.ExpectHSet("chat:room:lobby",
		"name", "lobby", "type", AccessOpen, "credential", "").SetVal(3)

	err := svc.CreateRoom(context.Background(), "lobby", AccessOpen, "")
	require.NoError(t, err)
	require.NoError(t, dbMock.ExpectationsWereMet())
	require.NoError(t, rdMock.ExpectationsWereMet())
}

func TestCreateRoomNormalizesUnknownType(t *testing.T) {
	svc, dbMock, rdMock := newService(t)

	dbMock.ExpectQuery(regexp.QuoteMeta(existsQ)).
		WithArgs("lobby").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	dbMock.ExpectExec(regexp.QuoteMeta(insertQ)).
		WithArgs("lobby", AccessOpen, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	rdMock.ExpectHSet("chat:room:lobby",
		"name", "lobby", "type", AccessOpen, "credential", "").SetVal(3)

	err := svc.CreateRoom(context.Background(), "lobby", "whatever", "")
	require.NoError(t, err)
}

func TestCreateRoomDuplicatePreCheck(t *testing.T) {
	svc, dbMock, _ := newService(t)

	dbMock.ExpectQuery(regexp.QuoteMeta(existsQ)).
		WithArgs("lobby").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	err := svc.CreateRoom(context.Background(), "lobby", AccessOpen, "")
	assert.ErrorIs(t, err, ErrRoomExists)
	require.NoError(t, dbMock.ExpectationsWereMet())
}

func TestCreateRoomDuplicateRaceFallsBackToUniqueViolation(t *testing.T) {
	svc, dbMock, _ := newService(t)

	// Pre-check passes, but a concurrent create wins the insert.
	dbMock.ExpectQuery(regexp.QuoteMeta(existsQ)).
		WithArgs("lobby").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	dbMock.ExpectExec(regexp.QuoteMeta(insertQ)).
		WithArgs("lobby", AccessOpen, sqlmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := svc.CreateRoom(context.Background(), "lobby", AccessOpen, "")
	assert.ErrorIs(t, err, ErrRoomExists)
}

func TestCreateRoomProtectedStoresCredential(t *testing.T) {
	svc, dbMock, rdMock := newService(t)

	dbMock.ExpectQuery(regexp.QuoteMeta(existsQ)).
		WithArgs("vault").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	dbMock.ExpectExec(regexp.QuoteMeta(insertQ)).
		WithArgs("vault", AccessProtected, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	rdMock.ExpectHSet("chat:room:vault",
		"name", "vault", "type", AccessProtected, "credential", "hunter2").SetVal(3)

	err := svc.CreateRoom(context.Background(), "vault", AccessProtected, "hunter2")
	require.NoError(t, err)
	require.NoError(t, rdMock.ExpectationsWereMet())
}

func TestGetRoomRedisFastPath(t *testing.T) {
	svc, _, rdMock := newService(t)

	rdMock.ExpectHGetAll("chat:room:vault").SetVal(map[string]string{
		"name": "vault", "type": AccessProtected, "credential": "hunter2",
	})

	dto, err := svc.GetRoom(context.Background(), "vault")
	require.NoError(t, err)
	assert.Equal(t, "vault", dto.Name)
	assert.True(t, dto.Protected())
	assert.Equal(t, "hunter2", dto.Credential)
}

func TestGetRoomFallsBackToPostgres(t *testing.T) {
	svc, dbMock, rdMock := newService(t)

	rdMock.ExpectHGetAll("chat:room:lobby").SetVal(map[string]string{})
	dbMock.ExpectQuery(regexp.QuoteMeta(getQ)).
		WithArgs("lobby").
		WillReturnRows(sqlmock.NewRows([]string{"name", "access_type", "credential"}).
			AddRow("lobby", AccessOpen, ""))

	dto, err := svc.GetRoom(context.Background(), "lobby")
	require.NoError(t, err)
	assert.Equal(t, "lobby", dto.Name)
	assert.False(t, dto.Protected())
}

func TestGetRoomNotFound(t *testing.T) {
	svc, dbMock, rdMock := newService(t)

	rdMock.ExpectHGetAll("chat:room:ghost").SetVal(map[string]string{})
	dbMock.ExpectQuery(regexp.QuoteMeta(getQ)).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"name", "access_type", "credential"}))

	_, err := svc.GetRoom(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestListRoomsSortedByName(t *testing.T) {
	svc, dbMock, _ := newService(t)

	dbMock.ExpectQuery(regexp.QuoteMeta(listQ)).
		WillReturnRows(sqlmock.NewRows([]string{"name", "access_type"}).
			AddRow("alpha", AccessOpen).
			AddRow("beta", AccessProtected))

	list, err := svc.ListRooms(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "alpha", list[0].Name)
	assert.Equal(t, "beta", list[1].Name)
}

func TestListRoomsEmpty(t *testing.T) {
	svc, dbMock, _ := newService(t)

	dbMock.ExpectQuery(regexp.QuoteMeta(listQ)).
		WillReturnRows(sqlmock.NewRows([]string{"name", "access_type"}))

	list, err := svc.ListRooms(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}
