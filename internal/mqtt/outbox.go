package mqtt

import log "github.com/sirupsen/logrus"

// outboxCapacity bounds how many messages are held while the broker is away.
const outboxCapacity = 64

// pending is a serialized MQTT message waiting for the broker.
type pending struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox is a fixed-capacity FIFO that keeps the newest messages while
// disconnected. Not safe for concurrent use; RealClient holds its lock.
type outbox struct {
	buf     []pending
	head    int // next write position
	count   int
	dropped int // messages overwritten since the last drain
}

func newOutbox(capacity int) *outbox {
	return &outbox{buf: make([]pending, capacity)}
}

func (o *outbox) push(msg pending) {
	if o.count == len(o.buf) {
		if o.dropped == 0 {
			log.WithField("component", "mqtt").Warnf("outbox full (%d messages), dropping oldest", len(o.buf))
		}
		o.dropped++
		// head already points at the oldest entry
		o.buf[o.head] = msg
		o.head = (o.head + 1) % len(o.buf)
		return
	}
	o.buf[o.head] = msg
	o.head = (o.head + 1) % len(o.buf)
	o.count++
}

// drain returns the held messages oldest first and empties the outbox.
func (o *outbox) drain() []pending {
	if o.count == 0 {
		return nil
	}

	out := make([]pending, o.count)
	start := (o.head - o.count + len(o.buf)) % len(o.buf)
	for i := range out {
		out[i] = o.buf[(start+i)%len(o.buf)]
	}

	o.head = 0
	o.count = 0
	o.dropped = 0
	return out
}

func (o *outbox) len() int {
	return o.count
}
