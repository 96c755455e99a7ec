// The C11 broadcast daemon's accept loop, grounded directly on
// pkg/daemon/server.go's Serve: a single-goroutine select over an accept
// channel, a signal channel, and a per-connection done channel, with
// mutation of the connection set kept off of any connection's own
// goroutine. The RPC payload there (store.Store methods over net/rpc) is
// replaced here with fish's line-oriented set/set_export/erase/barrier
// broadcast protocol, since C11 is a plain-text protocol service, not an
// RPC service.
package univar

import (
	"bufio"
	"io"
	"net"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"tide.sh/pkg/logging"
)

var log = logging.New("univar")

// connState is a connection's position in the {greeting-pending → active →
// draining → closing} state machine from spec.md §4.11.
type connState int32

const (
	stateGreetingPending connState = iota
	stateActive
	stateDraining
	stateClosing
)

const outgoingQueueBound = 256

type conn struct {
	netConn net.Conn
	state   int32 // connState, set atomically: written from both the broadcaster and the connection's own goroutine
	outCh   chan string
	doneCh  chan struct{}
}

func (c *conn) setState(s connState) { atomic.StoreInt32(&c.state, int32(s)) }
func (c *conn) getState() connState  { return connState(atomic.LoadInt32(&c.state)) }

// ServeOpts configures Serve.
type ServeOpts struct {
	// Ready, if non-nil, is closed once the daemon is listening.
	Ready chan<- struct{}
	// Signals, if non-nil, overrides the default SIGTERM/SIGINT channel.
	Signals <-chan os.Signal
	// RewriteEvery is how many received mutations trigger a persistence
	// rewrite; spec.md §4.11 specifies 64.
	RewriteEvery int
}

// Serve listens on sockPath, loads persisted state from persistPath, and
// serves the broadcast protocol until every client disconnects or a
// terminating signal arrives, saving to persistPath on the way out. It
// returns the process exit code the caller's daemon subcommand should use.
func Serve(sockPath, persistPath string, opts ServeOpts) int {
	log.Info("pid is %d", os.Getpid())
	store := NewStore()
	if err := LoadPersisted(persistPath, store); err != nil {
		log.Warn("loading %s: %v", persistPath, err)
	}

	listener, err := net.Listen("unix", sockPath)
	if err != nil {
		log.Error("listening on %s: %v", sockPath, err)
		return 2
	}

	rewriteEvery := opts.RewriteEvery
	if rewriteEvery <= 0 {
		rewriteEvery = 64
	}

	connCh := make(chan net.Conn, 10)
	listenErrCh := make(chan error, 1)
	go func() {
		for {
			c, err := listener.Accept()
			if err != nil {
				listenErrCh <- err
				close(listenErrCh)
				return
			}
			connCh <- c
		}
	}()

	sigCh := opts.Signals
	if sigCh == nil {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGTERM, syscall.SIGINT)
		signal.Ignore(syscall.SIGHUP)
		sigCh = ch
	}

	conns := map[*conn]struct{}{}
	connDoneCh := make(chan *conn, 10)
	var mu sync.Mutex // guards conns + received (also touched from connection goroutines indirectly via methods below)
	received := 0

	broadcast := func(line string) {
		mu.Lock()
		for c := range conns {
			select {
			case c.outCh <- line:
			default:
				// Bounded queue full; per spec.md §4.11 the connection is
				// driven by select for conditional writes, and a full queue
				// here means the peer is not draining fast enough -- drop
				// into draining rather than block the broadcaster.
				c.setState(stateDraining)
			}
		}
		mu.Unlock()
	}

	hook := funcHook{
		onSet:   func(k, v string, exported bool) { broadcast(Message{Verb: verbFor(exported), Key: k, Value: v}.Encode()) },
		onErase: func(k string) { broadcast(Message{Verb: VerbErase, Key: k}.Encode()) },
	}
	store.AddHook(hook)

	if opts.Ready != nil {
		close(opts.Ready)
	}

	interrupt := func() {
		mu.Lock()
		for c := range conns {
			c.netConn.Close()
		}
		mu.Unlock()
	}

loop:
	for {
		select {
		case sig := <-sigCh:
			log.Info("received signal %v", sig)
			interrupt()
			break loop
		case err := <-listenErrCh:
			log.Warn("accept: %v", err)
			mu.Lock()
			empty := len(conns) == 0
			mu.Unlock()
			if empty {
				break loop
			}
		case nc := <-connCh:
			c := &conn{netConn: nc, outCh: make(chan string, outgoingQueueBound), doneCh: make(chan struct{})}
			c.setState(stateGreetingPending)
			mu.Lock()
			conns[c] = struct{}{}
			mu.Unlock()
			go serveConn(c, store, func(m Message) {
				mu.Lock()
				received++
				n := received
				mu.Unlock()
				store.apply(m)
				if n%rewriteEvery == 0 {
					if err := SavePersisted(persistPath, store); err != nil {
						log.Warn("periodic save: %v", err)
					}
				}
			})
			go func(c *conn) { <-c.doneCh; connDoneCh <- c }(c)
		case c := <-connDoneCh:
			mu.Lock()
			delete(conns, c)
			empty := len(conns) == 0
			mu.Unlock()
			if empty {
				log.Info("all clients disconnected, exiting")
				break loop
			}
		}
	}

	if err := SavePersisted(persistPath, store); err != nil {
		log.Warn("final save: %v", err)
	}
	listener.Close()
	os.Remove(sockPath)
	<-listenErrCh
	return 0
}

func verbFor(exported bool) Verb {
	if exported {
		return VerbSetExport
	}
	return VerbSet
}

type funcHook struct {
	onSet   func(key, value string, exported bool)
	onErase func(key string)
}

func (h funcHook) OnSet(key, value string, exported bool) { h.onSet(key, value, exported) }
func (h funcHook) OnErase(key string)                      { h.onErase(key) }

// serveConn drives one connection's read side and write side, implementing
// the per-connection state machine: greeting on entry to active, draining
// on peer close or protocol error, closing once the outgoing queue is
// flushed or a bound is hit.
func serveConn(c *conn, store *Store, apply func(Message)) {
	defer close(c.doneCh)
	defer c.netConn.Close()

	c.setState(stateActive)
	c.outCh <- banner

	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		w := bufio.NewWriter(c.netConn)
		for line := range c.outCh {
			if _, err := w.WriteString(line); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				return
			}
		}
	}()

	r := bufio.NewScanner(c.netConn)
	for r.Scan() {
		line := r.Text()
		m, ok := ParseLine(line)
		if !ok {
			continue // unknown/malformed line: ignored, per spec.md §4.11
		}
		switch m.Verb {
		case VerbSet, VerbSetExport, VerbErase:
			apply(m)
		case VerbBarrier:
			// The barrier reply must be enqueued after every message already
			// queued ahead of it, so S5's ordering guarantee holds: queue it
			// through the same outCh the broadcaster uses, never out of band.
			select {
			case c.outCh <- Message{Verb: VerbBarrierReply}.Encode():
			default:
				c.setState(stateDraining)
			}
		}
	}
	if err := r.Err(); err != nil && err != io.EOF {
		log.Debug("connection read error: %v", err)
	}

	c.setState(stateDraining)
	close(c.outCh)
	select {
	case <-writeDone:
	case <-time.After(2 * time.Second):
	}
	c.setState(stateClosing)
}
