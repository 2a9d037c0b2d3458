package notify

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

type failingNotifier struct{ calls int64 }

func (n *failingNotifier) Send(context.Context, Message) error {
	atomic.AddInt64(&n.calls, 1)
	return errors.New("smtp down")
}

func TestDispatch_SwallowsDeliveryFailure(t *testing.T) {
	fn := &failingNotifier{}
	d := NewDispatcher(fn, zap.NewNop())

	// must not panic or propagate anything
	d.Dispatch(Message{To: "a@b.c", Subject: "s", Template: "order-confirmation"})

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt64(&fn.calls) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("notifier was never called")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

type okNotifier struct{ got chan Message }

func (n *okNotifier) Send(_ context.Context, m Message) error {
	n.got <- m
	return nil
}

func TestDispatch_DeliversMessage(t *testing.T) {
	n := &okNotifier{got: make(chan Message, 1)}
	d := NewDispatcher(n, zap.NewNop())

	d.Dispatch(Message{To: "x@y.z", Subject: "hello", Template: "low-stock-alert", Context: map[string]any{"quantityLeft": 2}})

	select {
	case m := <-n.got:
		if m.To != "x@y.z" || m.Template != "low-stock-alert" {
			t.Fatalf("wrong message: %+v", m)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("message never delivered")
	}
}
