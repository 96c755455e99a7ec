package univar

import (
	"bufio"
	"net"
	"strings"
	"sync"
)

// Client is a shell's connection to the universal-variable daemon: it keeps
// a local Store in sync with the broadcast stream and can issue
// set/set_export/erase/barrier requests of its own.
type Client struct {
	conn    net.Conn
	store   *Store
	mu      sync.Mutex
	scanner *bufio.Scanner
	barrier chan struct{} // signaled by the read loop on barrier_reply
}

// Dial connects to the daemon listening on sockPath and starts a background
// goroutine applying incoming broadcasts to Store.
func Dial(sockPath string) (*Client, error) {
	c, err := net.Dial("unix", sockPath)
	if err != nil {
		return nil, err
	}
	cl := &Client{conn: c, store: NewStore(), barrier: make(chan struct{}, 1)}
	cl.scanner = bufio.NewScanner(c)
	go cl.readLoop()
	return cl, nil
}

// Store exposes the client's locally-synced copy of the universal variable
// set.
func (c *Client) Store() *Store { return c.store }

func (c *Client) readLoop() {
	for c.scanner.Scan() {
		line := c.scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue // banner line
		}
		m, ok := ParseLine(line)
		if !ok {
			continue
		}
		if m.Verb == VerbBarrierReply {
			select {
			case c.barrier <- struct{}{}:
			default:
			}
			continue
		}
		c.store.apply(m)
	}
}

func (c *Client) send(m Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.conn.Write([]byte(m.Encode()))
	return err
}

// Set requests an unexported set.
func (c *Client) Set(key, value string) error {
	return c.send(Message{Verb: VerbSet, Key: key, Value: value})
}

// SetExport requests an exported set.
func (c *Client) SetExport(key, value string) error {
	return c.send(Message{Verb: VerbSetExport, Key: key, Value: value})
}

// Erase requests removal of key.
func (c *Client) Erase(key string) error {
	return c.send(Message{Verb: VerbErase, Key: key})
}

// Barrier sends a barrier request and blocks until the matching
// barrier_reply has been read, guaranteeing that every broadcast enqueued
// to this client ahead of the reply has already been applied to Store --
// the ordering guarantee spec.md's scenario S5 requires.
func (c *Client) Barrier() error {
	if err := c.send(Message{Verb: VerbBarrier}); err != nil {
		return err
	}
	<-c.barrier
	return nil
}

// Close closes the underlying connection.
func (c *Client) Close() error { return c.conn.Close() }
