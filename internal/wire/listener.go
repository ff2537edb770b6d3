package wire

import (
	"errors"
	"io"
	"log"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/bji/txingest-classifier/internal/classifier"
)

// eventChannelCapacity bounds the buffered channel standing in for the
// original design's unbounded MPSC queue. Go has no unbounded channel
// primitive; sustained overproduction beyond this buffer blocks ingest
// goroutines on send rather than growing without limit, an explicit,
// intentional backpressure point the original crossbeam-channel design did
// not have (§9 Open Question).
const eventChannelCapacity = 4096

// Listener accepts TCP connections and decodes each one's frames onto a
// shared channel for the owner goroutine to consume.
type Listener struct {
	ln     net.Listener
	Events chan classifier.Event
}

// Listen binds addr, retrying once a second forever on failure (§7
// recoverable I/O; §6 bind failure is not one of the startup-fatal
// conditions — only invalid args/config are).
func Listen(addr string) *Listener {
	l := &Listener{Events: make(chan classifier.Event, eventChannelCapacity)}
	for {
		ln, err := net.Listen("tcp", addr)
		if err == nil {
			l.ln = ln
			return l
		}
		log.Printf("[wire] bind %s failed: %v, retrying", addr, err)
		time.Sleep(time.Second)
	}
}

// Serve accepts connections until the listener is closed, spawning one
// decode goroutine per connection.
func (l *Listener) Serve() {
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Printf("[wire] accept failed: %v", err)
			continue
		}
		go l.handleConn(conn)
	}
}

func (l *Listener) Close() error {
	return l.ln.Close()
}

func (l *Listener) handleConn(conn net.Conn) {
	connID := uuid.NewString()
	defer conn.Close()

	dec := NewDecoder(conn)
	for {
		ev, err := dec.Decode()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Printf("[wire] conn %s: %v", connID, err)
			}
			return
		}
		l.Events <- ev
	}
}
