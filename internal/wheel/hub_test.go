package wheel

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// stubConn records frames and flags any two writes that overlap in time.
type stubConn struct {
	writing int32
	overlap int32
	frames  int32
}

func (c *stubConn) SetWriteDeadline(time.Time) error { return nil }

func (c *stubConn) WriteMessage(_ int, _ []byte) error {
	if !atomic.CompareAndSwapInt32(&c.writing, 0, 1) {
		atomic.StoreInt32(&c.overlap, 1)
	}
	time.Sleep(time.Millisecond)
	atomic.StoreInt32(&c.writing, 0)
	atomic.AddInt32(&c.frames, 1)
	return nil
}

func (c *stubConn) Close() error { return nil }

func TestNewHub(t *testing.T) {
	hub := NewHub()

	if hub == nil {
		t.Fatal("NewHub() returned nil")
	}
	if hub.clients == nil {
		t.Error("Hub clients map is nil")
	}
	if hub.broadcast == nil {
		t.Error("Hub broadcast channel is nil")
	}
	if hub.register == nil {
		t.Error("Hub register channel is nil")
	}
	if hub.unregister == nil {
		t.Error("Hub unregister channel is nil")
	}
}

func TestHub_GetClientCount(t *testing.T) {
	hub := NewHub()

	if count := hub.GetClientCount(); count != 0 {
		t.Errorf("GetClientCount() = %v, want 0", count)
	}
}

func TestHub_BroadcastDoesNotBlock(t *testing.T) {
	hub := NewHub()

	// Hub not running, so the channel fills to capacity.
	for i := 0; i < 100; i++ {
		hub.Broadcast(WSMessage{Type: "round_started"})
	}

	done := make(chan bool, 1)
	go func() {
		hub.Broadcast(WSMessage{Type: "overflow"})
		done <- true
	}()

	select {
	case <-done:
		// Dropped instead of blocking.
	case <-time.After(100 * time.Millisecond):
		t.Error("Broadcast() blocked when channel was full")
	}
}

func TestHub_ConcurrentBroadcasts(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer close(hub.broadcast)

	time.Sleep(10 * time.Millisecond)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			hub.Broadcast(WSMessage{
				Type: "spin_started",
				Data: SpinStartedMessage{RoundID: int64(n)},
			})
		}(i)
	}

	done := make(chan bool)
	go func() {
		wg.Wait()
		done <- true
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Error("Concurrent broadcasts timed out")
	}
}

func TestHub_GetClientCount_ThreadSafe(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer close(hub.broadcast)

	time.Sleep(10 * time.Millisecond)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = hub.GetClientCount()
		}()
	}

	done := make(chan bool)
	go func() {
		wg.Wait()
		done <- true
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Error("Concurrent GetClientCount() timed out")
	}
}

func TestClient_DirectSendSerializedWithBroadcasts(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer close(hub.broadcast)

	conn := &stubConn{}
	client := hub.RegisterClient(conn, "alice")

	// Hub broadcasts and direct replies race for the connection; the
	// per-client lock must keep every frame whole.
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if n%2 == 0 {
				hub.Broadcast(WSMessage{Type: "round_started", Data: RoundStartedMessage{RoundID: int64(n)}})
			} else {
				client.Send(WSMessage{Type: "bet_accepted"})
			}
		}(i)
	}
	wg.Wait()

	// Broadcast deliveries run on their own goroutines; wait for the writes
	// to drain.
	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&conn.frames) < 20 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if got := atomic.LoadInt32(&conn.frames); got != 20 {
		t.Errorf("wrote %d frames, want 20", got)
	}
	if atomic.LoadInt32(&conn.overlap) != 0 {
		t.Error("concurrent writes interleaved on the connection")
	}
}

func BenchmarkHub_Broadcast(b *testing.B) {
	hub := NewHub()
	go hub.Run()
	defer close(hub.broadcast)

	time.Sleep(10 * time.Millisecond)

	message := WSMessage{Type: "round_started", Data: RoundStartedMessage{RoundID: 1}}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		hub.Broadcast(message)
	}
}
