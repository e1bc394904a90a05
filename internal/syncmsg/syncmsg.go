package syncmsg

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"chatroomsgo/internal/services/message"
)

// Run tails the message stream and persists every entry to Postgres.
// The stream entry ID doubles as the message primary key, so a restart
// that replays the stream from the beginning inserts nothing twice.
func Run(ctx context.Context, rdc *redis.Client, db *sql.DB) {
	go func() {
		lastID := "0-0"
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			// block up to 2 s for new entries
			res, err := rdc.XRead(ctx, &redis.XReadArgs{
				Streams: []string{message.Stream, lastID},
				Count:   100,
				Block:   2000 * time.Millisecond,
			}).Result()
			if err != nil && err != redis.Nil {
				zap.L().Warn("syncmsg.xread", zap.Error(err))
				time.Sleep(time.Second)
				continue
			}
			if len(res) == 0 {
				continue
			}
			entries := res[0].Messages
			if err := persist(ctx, db, entries); err != nil {
				zap.L().Warn("syncmsg.persist", zap.Error(err))
				continue
			}
			lastID = entries[len(entries)-1].ID
		}
	}()
}

func persist(ctx context.Context, db *sql.DB, msgs []redis.XMessage) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	const ins = `INSERT INTO messages (id, room, sender, body, ts)
	             VALUES ($1, $2, $3, $4, $5)
	             ON CONFLICT (id) DO NOTHING`
	for _, m := range msgs {
		room, _ := m.Values["room"].(string)
		sender, _ := m.Values["sender"].(string)
		body, _ := m.Values["body"].(string)
		tsRaw, _ := m.Values["ts"].(string)

		ts, _ := strconv.ParseInt(tsRaw, 10, 64)
		if _, err := tx.ExecContext(ctx, ins, m.ID, room, sender, body, ts); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}
