package debounce

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestScheduleCoalescesToLastCall(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	var fired int32
	var got int32
	for i := 1; i <= 5; i++ {
		arg := int32(i)
		s.Schedule("cart", 30*time.Millisecond, func() {
			atomic.AddInt32(&fired, 1)
			atomic.StoreInt32(&got, arg)
		})
		time.Sleep(2 * time.Millisecond)
	}

	time.Sleep(100 * time.Millisecond)
	if n := atomic.LoadInt32(&fired); n != 1 {
		t.Fatalf("expected exactly one invocation, got %d", n)
	}
	if v := atomic.LoadInt32(&got); v != 5 {
		t.Fatalf("expected last call's argument 5, got %d", v)
	}
}

func TestCancelDropsPendingInvocation(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	var fired int32
	s.Schedule("cart", 20*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
	s.Cancel("cart")

	time.Sleep(60 * time.Millisecond)
	if n := atomic.LoadInt32(&fired); n != 0 {
		t.Fatalf("expected no invocation after cancel, got %d", n)
	}
	if s.Pending("cart") {
		t.Fatalf("expected no pending entry after cancel")
	}
}

func TestFlushRunsSynchronouslyAndOnce(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	var fired int32
	s.Schedule("cart", time.Hour, func() { atomic.AddInt32(&fired, 1) })

	if !s.Flush("cart") {
		t.Fatalf("expected flush to report a pending invocation")
	}
	if n := atomic.LoadInt32(&fired); n != 1 {
		t.Fatalf("expected synchronous invocation, got %d", n)
	}

	// The timer must not fire a second time.
	time.Sleep(30 * time.Millisecond)
	if n := atomic.LoadInt32(&fired); n != 1 {
		t.Fatalf("expected single invocation, got %d", n)
	}

	if s.Flush("cart") {
		t.Fatalf("expected flush on empty channel to report false")
	}
}

func TestChannelsAreIndependent(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	var a, b int32
	s.Schedule("a", 10*time.Millisecond, func() { atomic.AddInt32(&a, 1) })
	s.Schedule("b", 10*time.Millisecond, func() { atomic.AddInt32(&b, 1) })
	s.Cancel("a")

	time.Sleep(50 * time.Millisecond)
	if atomic.LoadInt32(&a) != 0 {
		t.Fatalf("expected cancelled channel a not to fire")
	}
	if atomic.LoadInt32(&b) != 1 {
		t.Fatalf("expected channel b to fire once, got %d", atomic.LoadInt32(&b))
	}
}

func TestStopRejectsFurtherScheduling(t *testing.T) {
	s := NewScheduler()

	var fired int32
	s.Schedule("cart", 10*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
	s.Stop()
	s.Schedule("cart", time.Millisecond, func() { atomic.AddInt32(&fired, 1) })

	time.Sleep(40 * time.Millisecond)
	if n := atomic.LoadInt32(&fired); n != 0 {
		t.Fatalf("expected no invocations after stop, got %d", n)
	}
}
