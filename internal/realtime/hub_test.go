package realtime

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingConn struct {
	mu       sync.Mutex
	events   []Event
	received chan Event
	failOn   int
	block    chan struct{}
	closed   int
}

func newRecordingConn() *recordingConn {
	return &recordingConn{received: make(chan Event, 100)}
}

func (c *recordingConn) WriteEvent(event Event) error {
	if c.block != nil {
		<-c.block
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.failOn > 0 && len(c.events)+1 >= c.failOn {
		return errors.New("broken pipe")
	}

	c.events = append(c.events, event)
	c.received <- event
	return nil
}

func (c *recordingConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return nil
}

// stalledConn blocks both writes and Close until release is closed, like a
// peer that stopped reading while the writer holds the connection.
type stalledConn struct {
	*recordingConn
	release chan struct{}
}

func newStalledConn() *stalledConn {
	release := make(chan struct{})
	conn := newRecordingConn()
	conn.block = release
	return &stalledConn{recordingConn: conn, release: release}
}

func (c *stalledConn) Close() error {
	<-c.release
	return c.recordingConn.Close()
}

func (c *recordingConn) closeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *recordingConn) next(t *testing.T) Event {
	t.Helper()
	select {
	case event := <-c.received:
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("событие не доставлено")
		return Event{}
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitDone(t *testing.T, sub *Subscriber) {
	t.Helper()
	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("подписчик не был отключён")
	}
}

func TestHub_PublishOrderToAllSubscribers(t *testing.T) {
	hub := NewHub(testLogger())
	defer hub.Close()

	first, second := newRecordingConn(), newRecordingConn()
	_, err := hub.Register(first)
	require.NoError(t, err)
	_, err = hub.Register(second)
	require.NoError(t, err)

	hub.Publish(PostCreated("p1"))
	hub.Publish(PostUpdated("p1"))
	hub.Publish(PostDeleted("p1"))

	for _, conn := range []*recordingConn{first, second} {
		assert.Equal(t, ActionCreate, conn.next(t).Action)
		assert.Equal(t, ActionUpdate, conn.next(t).Action)
		assert.Equal(t, ActionDelete, conn.next(t).Action)
	}
}

func TestHub_FailingSubscriberDoesNotAffectOthers(t *testing.T) {
	hub := NewHub(testLogger())
	defer hub.Close()

	healthy := newRecordingConn()
	broken := newRecordingConn()
	broken.failOn = 2

	_, err := hub.Register(healthy)
	require.NoError(t, err)
	brokenSub, err := hub.Register(broken)
	require.NoError(t, err)

	hub.Publish(PostCreated("p1"))
	assert.Equal(t, ActionCreate, broken.next(t).Action)

	hub.Publish(PostUpdated("p1"))
	waitDone(t, brokenSub)

	hub.Publish(PostDeleted("p1"))

	assert.Equal(t, ActionCreate, healthy.next(t).Action)
	assert.Equal(t, ActionUpdate, healthy.next(t).Action)
	assert.Equal(t, ActionDelete, healthy.next(t).Action)
	assert.Equal(t, 1, hub.Len())
	assert.Equal(t, 1, broken.closeCount())
}

func TestHub_SlowSubscriberIsDropped(t *testing.T) {
	hub := NewHub(testLogger(), WithQueueSize(1))
	defer hub.Close()

	slow := newRecordingConn()
	slow.block = make(chan struct{})
	defer close(slow.block)

	fast := newRecordingConn()

	slowSub, err := hub.Register(slow)
	require.NoError(t, err)
	_, err = hub.Register(fast)
	require.NoError(t, err)

	// the slow writer holds one event and its queue holds one more
	for i := 0; i < 3; i++ {
		hub.Publish(PostCreated(i))
		fast.next(t)
	}

	waitDone(t, slowSub)
	assert.Equal(t, 1, hub.Len())
}

func TestHub_DroppingStalledSubscriberDoesNotBlockPublish(t *testing.T) {
	hub := NewHub(testLogger(), WithQueueSize(1))
	defer hub.Close()

	stalled := newStalledConn()
	fast := newRecordingConn()

	stalledSub, err := hub.Register(stalled)
	require.NoError(t, err)
	_, err = hub.Register(fast)
	require.NoError(t, err)

	published := make(chan struct{})
	go func() {
		defer close(published)
		for i := 0; i < 3; i++ {
			hub.Publish(PostCreated(i))
		}
	}()

	select {
	case <-published:
	case <-time.After(time.Second):
		close(stalled.release)
		t.Fatal("публикация ждёт закрытия зависшего подписчика")
	}

	waitDone(t, stalledSub)
	for i := 0; i < 3; i++ {
		assert.Equal(t, i, fast.next(t).Post)
	}
	assert.Equal(t, 1, hub.Len())
	assert.Equal(t, 0, stalled.closeCount())

	close(stalled.release)
	assert.Eventually(t, func() bool { return stalled.closeCount() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_UnregisterIsIdempotent(t *testing.T) {
	hub := NewHub(testLogger())
	conn := newRecordingConn()

	sub, err := hub.Register(conn)
	require.NoError(t, err)

	hub.Unregister(sub)
	hub.Unregister(sub)
	hub.Unregister(nil)

	assert.Equal(t, 0, hub.Len())
	assert.Equal(t, 1, conn.closeCount())

	assert.NotPanics(t, func() { hub.Publish(PostDeleted("p1")) })
}

func TestHub_RegisterAfterClose(t *testing.T) {
	hub := NewHub(testLogger())
	conn := newRecordingConn()

	sub, err := hub.Register(conn)
	require.NoError(t, err)

	hub.Close()
	waitDone(t, sub)

	_, err = hub.Register(newRecordingConn())
	assert.ErrorIs(t, err, ErrHubClosed)
}

func TestHub_NilHubPublishPanics(t *testing.T) {
	var hub *Hub
	assert.Panics(t, func() { hub.Publish(PostCreated("p1")) })
}

func TestHub_ConcurrentRegisterDuringPublish(t *testing.T) {
	hub := NewHub(testLogger())
	defer hub.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			sub, err := hub.Register(newRecordingConn())
			if err == nil {
				hub.Unregister(sub)
			}
		}()
		go func(i int) {
			defer wg.Done()
			hub.Publish(PostCreated(i))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, hub.Len())
}

func TestEncodeEvent(t *testing.T) {
	event := PostDeleted("p1")

	t.Run("JSON", func(t *testing.T) {
		messageType, payload, err := EncodeEvent(event, false)
		require.NoError(t, err)
		assert.Equal(t, websocket.TextMessage, messageType)
		assert.JSONEq(t, `{"action":"delete","post":"p1"}`, string(payload))
	})

	t.Run("CBOR", func(t *testing.T) {
		messageType, payload, err := EncodeEvent(event, true)
		require.NoError(t, err)
		assert.Equal(t, websocket.BinaryMessage, messageType)

		var decoded struct {
			Action string `cbor:"action"`
			Post   string `cbor:"post"`
		}
		require.NoError(t, cbor.Unmarshal(payload, &decoded))
		assert.Equal(t, "delete", decoded.Action)
		assert.Equal(t, "p1", decoded.Post)
	})
}
