package sigchan

import (
	"testing"
	"time"
)

// TestEmitNonBlocking 缓冲满之后 Emit 不会阻塞
func TestEmitNonBlocking(t *testing.T) {
	c := New(1)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			c.Emit()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit 不应该阻塞")
	}

	// 只能收到缓冲内的一个信号
	select {
	case <-c.C():
	default:
		t.Error("应该能收到一个信号")
	}
	select {
	case <-c.C():
		t.Error("超出缓冲的信号应该被丢弃")
	default:
	}
}
