package api

import "testing"

func TestBrokerFanOut(t *testing.T) {
	b := NewBroker()
	a1 := b.Subscribe(TopicAlerts)
	a2 := b.Subscribe(TopicAlerts)
	other := b.Subscribe(TopicSchedules)

	b.Publish(TopicAlerts, Event{Type: "alert.raised", Data: map[string]any{"alertId": "a1"}})

	for _, ch := range []chan Event{a1, a2} {
		select {
		case evt := <-ch:
			if evt.Type != "alert.raised" {
				t.Fatalf("event type = %q", evt.Type)
			}
		default:
			t.Fatal("subscriber did not receive event")
		}
	}
	select {
	case <-other:
		t.Fatal("event leaked across topics")
	default:
	}
}

func TestBrokerSlowConsumerDoesNotBlock(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe(TopicAlerts)
	// Overflow the buffer; publishes must not block.
	for i := 0; i < 20; i++ {
		b.Publish(TopicAlerts, Event{Type: "alert.raised"})
	}
	b.Unsubscribe(TopicAlerts, ch)
}

func TestBrokerUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe(TopicAlerts)
	b.Unsubscribe(TopicAlerts, ch)
	if _, ok := <-ch; ok {
		t.Fatal("channel not closed on unsubscribe")
	}
}
