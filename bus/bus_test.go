// bus/bus_test.go
package bus

import (
	"testing"
	"time"
)

func TestBasicPubSub(t *testing.T) {
	b := NewBus(4)
	conn := b.NewConnection("test")

	sub := conn.Subscribe(T("turret", "state"))

	conn.Publish(&Message{Topic: T("turret", "state"), Payload: "engaged"})

	select {
	case got := <-sub.Channel():
		if got.Payload.(string) != "engaged" {
			t.Errorf("expected payload 'engaged', got %v", got.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for message")
	}
}

func TestRetainedMessage(t *testing.T) {
	b := NewBus(2)
	conn := b.NewConnection("test")

	conn.Publish(&Message{Topic: T("turret", "state"), Payload: "idle", Retained: true})

	sub := conn.Subscribe(T("turret", "state"))

	select {
	case got := <-sub.Channel():
		if got.Payload.(string) != "idle" {
			t.Errorf("expected retained payload 'idle', got %v", got.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for retained message")
	}
}

func TestRetainedClear(t *testing.T) {
	b := NewBus(2)
	conn := b.NewConnection("test")

	conn.Publish(&Message{Topic: T("turret", "state"), Payload: "idle", Retained: true})
	conn.Publish(&Message{Topic: T("turret", "state"), Payload: nil, Retained: true})

	sub := conn.Subscribe(T("turret", "state"))

	select {
	case got := <-sub.Channel():
		t.Fatalf("expected no retained message after clear, got %#v", got)
	case <-time.After(60 * time.Millisecond):
	}
}

func TestOverflowDropsOldest(t *testing.T) {
	b := NewBus(2)
	conn := b.NewConnection("test")

	sub := conn.Subscribe(T("turret", "setpoint"))

	for i := 0; i < 5; i++ {
		conn.Publish(&Message{Topic: T("turret", "setpoint"), Payload: i})
	}

	// Last-wins: the freshest publishes survive, the oldest are dropped.
	first := <-sub.Channel()
	second := <-sub.Channel()
	if first.Payload.(int) != 3 || second.Payload.(int) != 4 {
		t.Fatalf("expected payloads 3,4 after overflow, got %v,%v", first.Payload, second.Payload)
	}
}

func TestIntTokens(t *testing.T) {
	b := NewBus(2)
	conn := b.NewConnection("test")

	topic := Topic{S("cell"), I(7)}
	sub := conn.Subscribe(topic)
	conn.Publish(&Message{Topic: topic, Payload: "hit"})

	select {
	case got := <-sub.Channel():
		if got.Payload.(string) != "hit" {
			t.Errorf("unexpected payload %v", got.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout on int-token topic")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := NewBus(2)
	conn := b.NewConnection("test")

	sub := conn.Subscribe(T("turret", "state"))
	sub.Unsubscribe()

	conn.Publish(&Message{Topic: T("turret", "state"), Payload: "engaged"})

	if _, ok := <-sub.ch; ok {
		t.Fatal("expected closed channel after unsubscribe")
	}
}
