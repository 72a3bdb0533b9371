package value

import (
	"context"
	"testing"
	"time"

	"github.com/pydron/pydron/internal/tick"
)

func testID() ID {
	return NewID(tick.Start.Increment(1), "value")
}

func TestHolderStoredReturnsImmediately(t *testing.T) {
	c, _ := NewFromValue(Str("x"), true, false)
	h := NewStored(testID(), c)
	got, err := h.Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != c {
		t.Fatalf("Get returned a different container than was stored")
	}
	if h.State() != Stored {
		t.Fatalf("State() = %v, want Stored", h.State())
	}
}

func TestHolderGetBlocksUntilSet(t *testing.T) {
	canceled := false
	h := NewTransferring(testID(), func() { canceled = true })

	results := make(chan *Container, 1)
	errs := make(chan error, 1)
	go func() {
		c, err := h.Get(context.Background())
		results <- c
		errs <- err
	}()

	// Give the waiting goroutine a chance to register before Set.
	time.Sleep(10 * time.Millisecond)
	if h.State() != TransferringWithWaiters {
		t.Fatalf("State() = %v, want TransferringWithWaiters", h.State())
	}

	want, _ := NewFromValue(Int(1), true, false)
	h.Set(want)

	select {
	case got := <-results:
		if got != want {
			t.Fatalf("Get returned unexpected container")
		}
	case <-time.After(time.Second):
		t.Fatalf("Get did not unblock after Set")
	}
	if err := <-errs; err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if canceled {
		t.Fatalf("canceller should not fire when Set completes normally")
	}
}

func TestHolderFailPropagatesToWaiters(t *testing.T) {
	h := NewTransferring(testID(), func() {})

	errs := make(chan error, 1)
	go func() {
		_, err := h.Get(context.Background())
		errs <- err
	}()
	time.Sleep(10 * time.Millisecond)

	wantErr := ErrFreed
	h.Fail(wantErr)

	select {
	case err := <-errs:
		if err != wantErr {
			t.Fatalf("Get error = %v, want %v", err, wantErr)
		}
	case <-time.After(time.Second):
		t.Fatalf("Get did not unblock after Fail")
	}
}

func TestHolderGetCancelledByContextCancelsTransfer(t *testing.T) {
	cancelCh := make(chan struct{})
	h := NewTransferring(testID(), func() { close(cancelCh) })

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		_, err := h.Get(ctx)
		errs <- err
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-errs:
		if err != context.Canceled {
			t.Fatalf("Get error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Get did not unblock after context cancellation")
	}

	select {
	case <-cancelCh:
	case <-time.After(time.Second):
		t.Fatalf("canceller was not invoked after the last waiter left")
	}
	if h.State() != Freed {
		t.Fatalf("State() = %v, want Freed", h.State())
	}
}

func TestHolderFreeOnStoredIsImmediate(t *testing.T) {
	c, _ := NewFromValue(Str("x"), true, false)
	h := NewStored(testID(), c)
	if err := h.Free(context.Background()); err != nil {
		t.Fatalf("Free: %v", err)
	}
	if h.State() != Freed {
		t.Fatalf("State() = %v, want Freed", h.State())
	}
	if _, err := h.Get(context.Background()); err != ErrFreed {
		t.Fatalf("Get after Free = %v, want ErrFreed", err)
	}
}

func TestHolderFreePendingDuringTransferCompletesOnSet(t *testing.T) {
	h := NewTransferring(testID(), func() {})

	getErrs := make(chan error, 1)
	go func() {
		_, err := h.Get(context.Background())
		getErrs <- err
	}()
	time.Sleep(10 * time.Millisecond)
	if h.State() != TransferringWithWaiters {
		t.Fatalf("State() = %v, want TransferringWithWaiters", h.State())
	}

	freeErrs := make(chan error, 1)
	go func() {
		freeErrs <- h.Free(context.Background())
	}()
	time.Sleep(10 * time.Millisecond)
	if h.State() != TransferringWithWaitersAndFreePending {
		t.Fatalf("State() = %v, want TransferringWithWaitersAndFreePending", h.State())
	}

	c, _ := NewFromValue(Int(1), true, false)
	h.Set(c)

	select {
	case err := <-freeErrs:
		if err != nil {
			t.Fatalf("Free: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Free did not complete")
	}
	select {
	case err := <-getErrs:
		// Free was requested before Set arrived, so the holder settles
		// into Freed rather than Stored: a pending free wins over a
		// waiting reader once both are outstanding.
		if err != ErrFreed {
			t.Fatalf("Get error = %v, want ErrFreed", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Get did not complete")
	}
	if h.State() != Freed {
		t.Fatalf("State() = %v, want Freed", h.State())
	}
}
