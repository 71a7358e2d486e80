package events

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/signalsfoundry/sattrack/internal/logging"
)

func TestPublishInSubscriptionOrder(t *testing.T) {
	ch := NewChannel(nil)

	var got []string
	ch.Subscribe(ObserverAdded, func(e Event) { got = append(got, "first:"+e.Payload.(string)) })
	ch.Subscribe(ObserverAdded, func(e Event) { got = append(got, "second:"+e.Payload.(string)) })
	ch.Subscribe(ObserverRemoved, func(e Event) { got = append(got, "other") })

	ch.Publish(ObserverAdded, "x")

	want := []string{"first:x", "second:x"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("handlers ran as %v, want %v", got, want)
	}
}

func TestDuplicateSubscriptionDeliversTwice(t *testing.T) {
	ch := NewChannel(nil)

	calls := 0
	h := func(Event) { calls++ }
	ch.Subscribe(ObserversUpdated, h)
	unsub := ch.Subscribe(ObserversUpdated, h)

	ch.Publish(ObserversUpdated, nil)
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}

	unsub()
	ch.Publish(ObserversUpdated, nil)
	if calls != 3 {
		t.Fatalf("after unsubscribing one registration calls = %d, want 3", calls)
	}
}

func TestUnsubscribeIdempotent(t *testing.T) {
	ch := NewChannel(nil)

	unsub := ch.Subscribe(TLEAdded, func(Event) {})
	keep := ch.Subscribe(TLEAdded, func(Event) {})
	if n := ch.SubscriberCount(TLEAdded); n != 2 {
		t.Fatalf("SubscriberCount = %d, want 2", n)
	}

	unsub()
	unsub()
	if n := ch.SubscriberCount(TLEAdded); n != 1 {
		t.Fatalf("SubscriberCount after double unsubscribe = %d, want 1", n)
	}

	keep()
	if n := ch.SubscriberCount(TLEAdded); n != 0 {
		t.Fatalf("SubscriberCount = %d, want 0", n)
	}
}

func TestPublishWithoutSubscribers(t *testing.T) {
	ch := NewChannel(nil)
	ch.Publish(TLEsCleared, struct{}{})
}

func TestPanickingHandlerDoesNotStopOthers(t *testing.T) {
	var buf bytes.Buffer
	ch := NewChannel(logging.New(logging.Config{Output: &buf}))

	ran := false
	ch.Subscribe(ObserverAdded, func(Event) { panic("boom") })
	ch.Subscribe(ObserverAdded, func(Event) { ran = true })

	ch.Publish(ObserverAdded, nil)

	if !ran {
		t.Fatalf("handler after a panicking handler did not run")
	}
	if !strings.Contains(buf.String(), "event handler panicked") {
		t.Fatalf("panic was not logged: %q", buf.String())
	}
}

func TestSubscribeMany(t *testing.T) {
	ch := NewChannel(nil)

	var names []Name
	unsub := ch.SubscribeMany(func(e Event) { names = append(names, e.Name) }, ObserverNames...)

	ch.Publish(ObserverAdded, nil)
	ch.Publish(ObserversUpdated, nil)
	ch.Publish(TLEAdded, nil)
	if len(names) != 2 || names[0] != ObserverAdded || names[1] != ObserversUpdated {
		t.Fatalf("received %v", names)
	}

	unsub()
	for _, n := range ObserverNames {
		if c := ch.SubscriberCount(n); c != 0 {
			t.Fatalf("SubscriberCount(%s) = %d after unsubscribe", n, c)
		}
	}
}

func TestHandlerMayUnsubscribeDuringPublish(t *testing.T) {
	ch := NewChannel(nil)

	calls := 0
	var unsub func()
	unsub = ch.Subscribe(TLEAdded, func(Event) {
		calls++
		unsub()
	})

	ch.Publish(TLEAdded, nil)
	ch.Publish(TLEAdded, nil)
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestConcurrentPublishSubscribe(t *testing.T) {
	ch := NewChannel(nil)

	var mu sync.Mutex
	count := 0
	ch.Subscribe(ObserversUpdated, func(Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			ch.Publish(ObserversUpdated, i)
		}()
		go func() {
			defer wg.Done()
			unsub := ch.Subscribe(ObserverAdded, func(Event) {})
			unsub()
		}()
	}
	wg.Wait()

	if count != 10 {
		t.Fatalf("count = %d, want 10", count)
	}
}
