package gateway

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	pkgredis "github.com/mx-space/memory-explorer/internal/pkg/redis"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu   sync.Mutex
	msgs []Message
}

func (r *recorder) deliver(msg Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recorder) snapshot() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.msgs...)
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *pkgredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := pkgredis.New(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = rc.Close() })
	return mr, rc
}

func TestEmitDeliversLocally(t *testing.T) {
	rec := &recorder{}
	hub := NewHub(nil, nil, WithDeliver(rec.deliver))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	hub.Emit("s1", EventNotice, "hello")
	hub.Emit("", EventNotice, "dropped")

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	msg := rec.snapshot()[0]
	require.Equal(t, "s1", msg.Room)
	require.Equal(t, EventNotice, msg.Event)
	require.Equal(t, "hello", msg.Payload)
}

func TestRedisFanOutSkipsOwnMessages(t *testing.T) {
	mr, rcA := newRedis(t)
	rcB := pkgredis.New(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = rcB.Close() })

	recA, recB := &recorder{}, &recorder{}
	hubA := NewHub(rcA, nil, WithDeliver(recA.deliver))
	hubB := NewHub(rcB, nil, WithDeliver(recB.deliver))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hubA.Run(ctx)
	go hubB.Run(ctx)

	require.Eventually(t, func() bool {
		return mr.PubSubNumSub(redisChannel)[redisChannel] == 2
	}, time.Second, 5*time.Millisecond)

	hubA.Emit("s1", EventExplorerState, map[string]interface{}{"view": "home"})

	require.Eventually(t, func() bool { return len(recB.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	got := recB.snapshot()[0]
	require.Equal(t, "s1", got.Room)
	require.Equal(t, EventExplorerState, got.Event)
	require.Equal(t, map[string]interface{}{"view": "home"}, got.Payload)

	time.Sleep(50 * time.Millisecond)
	require.Len(t, recA.snapshot(), 1)
}

func TestEmitDropsWhenQueueFull(t *testing.T) {
	hub := NewHub(nil, nil, WithDeliver(func(Message) {}))
	for i := 0; i < queueSize+10; i++ {
		hub.Emit("s1", EventNotice, i)
	}
	require.Len(t, hub.broadcast, queueSize)
}

func TestTrackDoesNotBlockAfterShutdown(t *testing.T) {
	hub := NewHub(nil, nil, WithDeliver(func(Message) {}))
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	cancel()
	<-hub.done

	for i := 0; i < queueSize; i++ {
		hub.register <- clientMeta{sid: "filler"}
	}

	queued := make(chan bool, 2)
	go func() {
		queued <- hub.track(hub.register, clientMeta{sid: "a", room: "s1"})
		queued <- hub.track(hub.unregister, clientMeta{sid: "b", room: "s1"})
	}()
	require.Eventually(t, func() bool { return len(queued) == 2 }, time.Second, 10*time.Millisecond)
	require.False(t, <-queued)
}

func TestRoomCounting(t *testing.T) {
	hub := NewHub(nil, nil)
	hub.registerClient(clientMeta{sid: "a", room: "s1"})
	hub.registerClient(clientMeta{sid: "b", room: "s1"})
	hub.registerClient(clientMeta{sid: "c", room: "s2"})
	hub.registerClient(clientMeta{sid: "a", room: "s1"})

	require.Equal(t, 3, hub.ClientCount(""))
	require.Equal(t, 2, hub.ClientCount("s1"))
	require.Equal(t, 2, hub.Rooms())

	hub.unregisterClient(clientMeta{sid: "c"})
	hub.unregisterClient(clientMeta{sid: "missing"})
	require.Equal(t, 1, hub.Rooms())
	require.Equal(t, 0, hub.ClientCount("s2"))
}

func TestAuthorize(t *testing.T) {
	hub := NewHub(nil, func(token string) (string, bool) {
		if token == "good" {
			return "s1", true
		}
		return "", false
	})

	room, ok := hub.authorize("good")
	require.True(t, ok)
	require.Equal(t, "s1", room)

	_, ok = hub.authorize("bad")
	require.False(t, ok)
	_, ok = hub.authorize("")
	require.False(t, ok)

	_, ok = NewHub(nil, nil).authorize("good")
	require.False(t, ok)
}

func TestTokenFromHandshake(t *testing.T) {
	require.Equal(t, "q", tokenFromHandshake(map[string][]string{"token": {" q "}}, nil))
	require.Equal(t, "h", tokenFromHandshake(nil, map[string][]string{"X-Session-Token": {"h"}}))
	require.Equal(t, "b", tokenFromHandshake(nil, map[string][]string{"Authorization": {"Bearer b"}}))
	require.Equal(t, "", tokenFromHandshake(nil, nil))
}
