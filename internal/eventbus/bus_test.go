package eventbus

import (
	"sync"
	"testing"
	"time"
)

func TestBus_SubscribeAndPublish(t *testing.T) {
	bus := New()
	defer bus.Close()

	received := make(chan Event, 10)
	bus.Subscribe("tx.enriched", received)

	bus.Publish(Event{
		Type:        "tx.enriched",
		BlockNumber: 100,
		Timestamp:   time.Now(),
		Data:        map[string]string{"txHash": "0xabc"},
	})

	select {
	case evt := <-received:
		if evt.Type != "tx.enriched" {
			t.Errorf("expected tx.enriched, got %s", evt.Type)
		}
		if evt.BlockNumber != 100 {
			t.Errorf("expected block 100, got %d", evt.BlockNumber)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBus_MultipleSubscribers(t *testing.T) {
	bus := New()
	defer bus.Close()

	ch1 := make(chan Event, 10)
	ch2 := make(chan Event, 10)
	bus.Subscribe("tx.enriched", ch1)
	bus.Subscribe("tx.enriched", ch2)

	bus.Publish(Event{Type: "tx.enriched", BlockNumber: 1})

	for _, ch := range []chan Event{ch1, ch2} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestBus_TypeFiltering(t *testing.T) {
	bus := New()
	defer bus.Close()

	enrichedCh := make(chan Event, 10)
	jobCh := make(chan Event, 10)
	bus.Subscribe("tx.enriched", enrichedCh)
	bus.Subscribe("job.failed", jobCh)

	bus.Publish(Event{Type: "tx.enriched", BlockNumber: 1})

	select {
	case <-enrichedCh:
	case <-time.After(time.Second):
		t.Fatal("tx.enriched subscriber did not receive event")
	}

	select {
	case <-jobCh:
		t.Fatal("job.failed subscriber should NOT receive tx.enriched event")
	case <-time.After(50 * time.Millisecond):
		// good
	}
}

func TestBus_PublishBatch(t *testing.T) {
	bus := New()
	defer bus.Close()

	received := make(chan Event, 100)
	bus.Subscribe("tx.enriched", received)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(h uint64) {
			defer wg.Done()
			bus.Publish(Event{Type: "tx.enriched", BlockNumber: h})
		}(uint64(i))
	}
	wg.Wait()

	time.Sleep(100 * time.Millisecond)
	if len(received) != 50 {
		t.Errorf("expected 50 events, got %d", len(received))
	}
}
