package ws

import (
	"context"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatroomsgo/internal/services/coordinator"
)

func TestEnvelopeWithBody(t *testing.T) {
	payload, err := envelope("notice", coordinator.SystemNotice{Text: "Ann joined"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"rooms/notice","body":{"text":"Ann joined"}}`, string(payload))
}

func TestEnvelopeWithoutBody(t *testing.T) {
	payload, err := envelope("changed", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"rooms/changed"}`, string(payload))
}

func TestBroadcastPublishesToRoomChannel(t *testing.T) {
	rdc, rdMock := redismock.NewClientMock()
	d := NewDelivery(NewHub(), rdc)

	payload, err := envelope("message", coordinator.ChatMessage{Sender: "Ann", Body: "hi", TS: 100})
	require.NoError(t, err)
	rdMock.ExpectPublish("chat:room:lobby:events", payload).SetVal(1)

	require.NoError(t, d.Broadcast(context.Background(), "lobby", "message",
		coordinator.ChatMessage{Sender: "Ann", Body: "hi", TS: 100}))
	require.NoError(t, rdMock.ExpectationsWereMet())
}

func TestBroadcastAllPublishesToGlobalChannel(t *testing.T) {
	rdc, rdMock := redismock.NewClientMock()
	d := NewDelivery(NewHub(), rdc)

	payload, err := envelope("changed", nil)
	require.NoError(t, err)
	rdMock.ExpectPublish(globalChannel, payload).SetVal(1)

	require.NoError(t, d.BroadcastAll(context.Background(), "changed", nil))
	require.NoError(t, rdMock.ExpectationsWereMet())
}

func TestRoomChannelNaming(t *testing.T) {
	assert.Equal(t, "chat:room:lobby:events", roomChannel("lobby"))
}
