package room

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	AccessOpen      = "open"
	AccessProtected = "protected"

	// redisRoomKeyPrefix keys the write-through cache of room rows.
	redisRoomKeyPrefix = "chat:room:"

	pgUniqueViolation = "23505"
)

var (
	ErrRoomExists   = errors.New("room already exists")
	ErrRoomNotFound = errors.New("room does not exist")
)

type RoomDTO struct {
	Name       string `json:"name"`
	AccessType string `json:"type" example:"open"`
	Credential string `json:"-"`
}

func (r *RoomDTO) Protected() bool { return r.AccessType == AccessProtected }

type IRoomService interface {
	CreateRoom(ctx context.Context, name, accessType, credential string) error
	GetRoom(ctx context.Context, name string) (*RoomDTO, error)
	ListRooms(ctx context.Context) ([]RoomDTO, error)
}

type roomService struct {
	rdc *redis.Client
	db  *sql.DB
}

func NewRoomService(rdc *redis.Client, db *sql.DB) IRoomService {
	return &roomService{rdc: rdc, db: db}
}

// CreateRoom inserts the room definition. Any access type other than
// "protected" is stored as "open" with a NULL credential. The existence
// pre-check gives a friendly error on the common path; the table's
// primary key is the final arbiter, so a concurrent duplicate create
// still surfaces as ErrRoomExists via the unique-violation fallback.
func (svc *roomService) CreateRoom(ctx context.Context, name, accessType, credential string) error {
	var exists bool
	err := svc.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM rooms WHERE name = $1)`, name).Scan(&exists)
	if err != nil {
		return err
	}
	if exists {
		return ErrRoomExists
	}

	if accessType != AccessProtected {
		accessType = AccessOpen
	}
	cred := sql.NullString{}
	if accessType == AccessProtected {
		cred = sql.NullString{String: credential, Valid: true}
	}

	_, err = svc.db.ExecContext(ctx,
		`INSERT INTO rooms (name, access_type, credential) VALUES ($1, $2, $3)`,
		name, accessType, cred)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrRoomExists
		}
		return err
	}

	// Write-through cache; a miss here only costs a Postgres round trip
	// on the next GetRoom.
	if err := svc.rdc.HSet(ctx, redisRoomKeyPrefix+name,
		"name", name,
		"type", accessType,
		"credential", cred.String,
	).Err(); err != nil {
		zap.L().Warn("room.cache_set", zap.String("room", name), zap.Error(err))
	}
	return nil
}

// GetRoom serves from the Redis hash when present and falls back to
// Postgres. Rooms are immutable after creation, so the cache never goes
// stale.
func (svc *roomService) GetRoom(ctx context.Context, name string) (*RoomDTO, error) {
	snap, _ := svc.rdc.HGetAll(ctx, redisRoomKeyPrefix+name).Result()
	if len(snap) != 0 {
		return &RoomDTO{
			Name:       snap["name"],
			AccessType: snap["type"],
			Credential: snap["credential"],
		}, nil
	}

	const q = `SELECT name, access_type, coalesce(credential, '') FROM rooms WHERE name = $1`
	dto := &RoomDTO{}
	if err := svc.db.QueryRowContext(ctx, q, name).
		Scan(&dto.Name, &dto.AccessType, &dto.Credential); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return dto, nil
}

func (svc *roomService) ListRooms(ctx context.Context) ([]RoomDTO, error) {
	rows, err := svc.db.QueryContext(ctx,
		`SELECT name, access_type FROM rooms ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]RoomDTO, 0)
	for rows.Next() {
		var r RoomDTO
		if err := rows.Scan(&r.Name, &r.AccessType); err != nil {
			return nil, err
		}
		list = append(list, r)
	}
	return list, rows.Err()
}
