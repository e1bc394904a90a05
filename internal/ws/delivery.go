package ws

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"chatroomsgo/internal/services/coordinator"
)

// eventPrefix namespaces every coordinator-emitted event on the wire.
const eventPrefix = "rooms/"

// Delivery implements the coordinator's fan-out contract on top of the
// hub, the ref-counted room subscriptions, and Redis PUBLISH. Broadcasts
// take one round trip through Redis so the publish path is identical for
// every producer.
type Delivery struct {
	hub  *Hub
	subs *subscriptionManager
	rdc  *redis.Client
}

var _ coordinator.Delivery = (*Delivery)(nil)

func NewDelivery(hub *Hub, rdc *redis.Client) *Delivery {
	return &Delivery{
		hub:  hub,
		subs: newSubscriptionManager(rdc, hub),
		rdc:  rdc,
	}
}

// Start opens the global fan-out subscription. Call once at boot.
func (d *Delivery) Start(ctx context.Context) {
	d.subs.Start(ctx)
}

func (d *Delivery) JoinGroup(room, connID string) {
	d.hub.Join(room, connID)
	d.subs.Subscribe(room) // may be a no-op (already subscribed)
}

func (d *Delivery) LeaveGroup(room, connID string) {
	d.hub.Leave(room, connID)
	d.subs.Unsubscribe(room)
}

func (d *Delivery) Broadcast(ctx context.Context, room, event string, body any) error {
	payload, err := envelope(event, body)
	if err != nil {
		return err
	}
	return d.rdc.Publish(ctx, roomChannel(room), payload).Err()
}

func (d *Delivery) BroadcastAll(ctx context.Context, event string, body any) error {
	payload, err := envelope(event, body)
	if err != nil {
		return err
	}
	return d.rdc.Publish(ctx, globalChannel, payload).Err()
}

func envelope(event string, body any) ([]byte, error) {
	env := Envelope{Event: eventPrefix + event}
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		env.Body = raw
	}
	return json.Marshal(env)
}
