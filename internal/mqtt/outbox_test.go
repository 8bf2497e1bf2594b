package mqtt

import "testing"

func TestOutboxEmptyDrain(t *testing.T) {
	o := newOutbox(10)
	if got := o.drain(); got != nil {
		t.Errorf("expected nil from empty drain, got %d items", len(got))
	}
}

func TestOutboxKeepsOrder(t *testing.T) {
	o := newOutbox(10)
	for i := 0; i < 5; i++ {
		o.push(pending{topic: Topic, payload: []byte{byte(i)}})
	}
	if o.len() != 5 {
		t.Fatalf("len: got %d, want 5", o.len())
	}

	got := o.drain()
	if len(got) != 5 {
		t.Fatalf("expected 5 items, got %d", len(got))
	}
	for i := range got {
		if got[i].payload[0] != byte(i) {
			t.Errorf("item %d: got payload %d", i, got[i].payload[0])
		}
	}
	if o.len() != 0 {
		t.Error("drain should empty the outbox")
	}
}

func TestOutboxDropsOldest(t *testing.T) {
	o := newOutbox(5)
	for i := 0; i < 8; i++ {
		o.push(pending{topic: Topic, payload: []byte{byte(i)}})
	}
	if o.dropped != 3 {
		t.Errorf("dropped: got %d, want 3", o.dropped)
	}

	got := o.drain()
	if len(got) != 5 {
		t.Fatalf("expected 5 items, got %d", len(got))
	}
	for i := range got {
		if want := byte(i + 3); got[i].payload[0] != want {
			t.Errorf("item %d: got payload %d, want %d", i, got[i].payload[0], want)
		}
	}
	if o.dropped != 0 {
		t.Error("drain should reset the drop count")
	}
}

func TestOutboxReuseAfterDrain(t *testing.T) {
	o := newOutbox(3)
	o.push(pending{payload: []byte{1}})
	o.push(pending{payload: []byte{2}})
	o.drain()

	o.push(pending{payload: []byte{3}})
	got := o.drain()
	if len(got) != 1 || got[0].payload[0] != 3 {
		t.Errorf("unexpected drain after reuse: %+v", got)
	}
}
