package message

import (
	"context"
	"database/sql"

	"github.com/redis/go-redis/v9"
)

const (
	// Stream is the Redis stream every broadcast message is appended to.
	// The syncmsg worker tails it into Postgres.
	Stream = "chat:messages"

	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

type MessageDTO struct {
	Sender string `json:"sender"`
	Body   string `json:"body"`
	TS     int64  `json:"ts"`
}

type IMessageService interface {
	Append(ctx context.Context, room, sender, body string, ts int64) error
	ListHistory(ctx context.Context, room string, limit int) ([]MessageDTO, error)
}

type messageService struct {
	rdc          *redis.Client
	db           *sql.DB
	streamMaxLen int64
}

func NewMessageService(rdc *redis.Client, db *sql.DB, streamMaxLen int64) IMessageService {
	return &messageService{rdc: rdc, db: db, streamMaxLen: streamMaxLen}
}

// Append hands the message to the persistence pipeline. The Postgres
// write happens asynchronously in syncmsg; an error here means the
// message was delivered live but will be missing from history.
func (svc *messageService) Append(ctx context.Context, room, sender, body string, ts int64) error {
	return svc.rdc.XAdd(ctx, &redis.XAddArgs{
		Stream: Stream,
		MaxLen: svc.streamMaxLen,
		Approx: true,
		Values: []interface{}{"room", room, "sender", sender, "body", body, "ts", ts},
	}).Err()
}

// ListHistory returns a room's persisted messages, oldest first. The
// limit defaults to 50 and is clamped to 200; it is never rejected. The
// room name is not checked against the registry, so an unknown room
// yields an empty slice.
func (svc *messageService) ListHistory(ctx context.Context, room string, limit int) ([]MessageDTO, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	const q = `SELECT sender, body, ts FROM messages
	            WHERE room = $1 ORDER BY ts ASC, id ASC LIMIT $2`
	rows, err := svc.db.QueryContext(ctx, q, room, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]MessageDTO, 0, limit)
	for rows.Next() {
		var m MessageDTO
		if err := rows.Scan(&m.Sender, &m.Body, &m.TS); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}
