// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package sequencer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	log "github.com/inconshreveable/log15"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/ava-labs/avalanchego/database"

	"github.com/ava-labs/sequencervm/host"
	"github.com/ava-labs/sequencervm/storage"
)

const (
	DefaultQueueSize       = 1024
	DefaultHeaderQueueSize = 32
)

var ErrNodeClosed = errors.New("node is closed")

// Config tunes a Node.
type Config struct {
	QueueSize       int
	HeaderQueueSize int
	// LevelMarkers feeds end-of-level and start-of-level messages to the
	// kernel on every header.
	LevelMarkers bool
}

func DefaultConfig() Config {
	return Config{
		QueueSize:       DefaultQueueSize,
		HeaderQueueSize: DefaultHeaderQueueSize,
	}
}

// queueEntry is either an operation or a header. The signal channels are
// buffered so the actor never blocks on a caller that went away.
type queueEntry struct {
	op      []byte
	header  *Header
	queued  chan struct{}
	applied chan error
}

// Node serializes operations and headers through one queue. A single
// goroutine, started with Run, owns the batcher, the runtime and the
// kernel.
type Node struct {
	config   Config
	state    storage.State
	batcher  *Batcher
	executor *executor
	injector Injector
	metrics  *metrics

	queue     chan *queueEntry
	closeLock sync.RWMutex
	closed    bool
	done      chan struct{}

	level   atomic.Uint32
	pending atomic.Int64

	log log.Logger
}

// NewNode restores the last observed level from [state] and prepares the
// queue. Nothing runs until Run is called.
func NewNode(
	config Config,
	state storage.State,
	kernel host.Kernel,
	injector Injector,
	registerer prometheus.Registerer,
) (*Node, error) {
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultQueueSize
	}
	if config.HeaderQueueSize <= 0 {
		config.HeaderQueueSize = DefaultHeaderQueueSize
	}

	logger := log.New("module", "sequencer")

	initialized, err := state.IsInitialized()
	if err != nil {
		return nil, fmt.Errorf("failed to read state status: %w", err)
	}
	if !initialized {
		logger.Info("initializing fresh state")
		if err := state.SetInitialized(); err != nil {
			return nil, fmt.Errorf("failed to initialize state: %w", err)
		}
	}

	level, err := state.GetLevel()
	if err != nil {
		return nil, fmt.Errorf("failed to read level: %w", err)
	}

	m, err := newMetrics(registerer)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	var opts []BatcherOption
	if config.LevelMarkers {
		opts = append(opts, WithReservedMarkerSlots())
	}

	n := &Node{
		config:   config,
		state:    state,
		batcher:  NewBatcher(level, opts...),
		executor: newExecutor(host.NewNative(state), kernel, config.LevelMarkers),
		injector: injector,
		metrics:  m,
		queue:    make(chan *queueEntry, config.QueueSize),
		done:     make(chan struct{}),
		log:      logger,
	}
	n.level.Store(level)
	m.level.Set(float64(level))
	logger.Info("sequencer ready", "level", level, "queueSize", config.QueueSize, "levelMarkers", config.LevelMarkers)
	return n, nil
}

// SubmitOperation returns once [op] has been dequeued by the actor. The
// operation may not have been applied yet.
func (n *Node) SubmitOperation(ctx context.Context, op []byte) error {
	entry := &queueEntry{
		op:     op,
		queued: make(chan struct{}, 1),
	}
	if err := n.enqueue(ctx, entry); err != nil {
		return err
	}
	select {
	case <-entry.queued:
		n.log.Debug("operation submitted", "size", len(op))
		return nil
	case <-n.done:
		// the actor signals before it exits
		select {
		case <-entry.queued:
			return nil
		default:
			return ErrNodeClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ApplyOperation returns once the kernel ran for [op], with the kernel's
// error if any.
func (n *Node) ApplyOperation(ctx context.Context, op []byte) error {
	entry := &queueEntry{
		op:      op,
		applied: make(chan error, 1),
	}
	if err := n.enqueue(ctx, entry); err != nil {
		return err
	}
	select {
	case err := <-entry.applied:
		return err
	case <-n.done:
		select {
		case err := <-entry.applied:
			return err
		default:
			return ErrNodeClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GetValue returns the value stored at [path].
func (n *Node) GetValue(path string) ([]byte, bool) {
	value, err := n.state.Read(path)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			n.log.Debug("failed to read value", "path", path, "err", err)
		}
		return nil, false
	}
	return value, true
}

// GetSubkeys returns the child names of [path]. The root is never listed.
func (n *Node) GetSubkeys(path string) ([]string, bool) {
	if path == storage.Root {
		return nil, false
	}
	subkeys, err := n.state.Subkeys(path)
	if err != nil {
		n.log.Debug("failed to read subkeys", "path", path, "err", err)
		return nil, false
	}
	if subkeys == nil {
		subkeys = []string{}
	}
	return subkeys, true
}

// Level is the last layer 1 level processed by the actor.
func (n *Node) Level() uint32 { return n.level.Load() }

// Pending is the number of operations waiting for the next header.
func (n *Node) Pending() int { return int(n.pending.Load()) }

// Backlog is the number of entries waiting in the queue.
func (n *Node) Backlog() int { return len(n.queue) }

// Run consumes the queue until Shutdown drained it or [ctx] is done.
// Cancelling [ctx] abandons queued entries, callers that want them applied
// call Shutdown instead and keep [ctx] alive.
func (n *Node) Run(ctx context.Context) error {
	defer close(n.done)

	n.log.Info("sequencer started")
	for {
		select {
		case entry, ok := <-n.queue:
			if !ok {
				n.log.Info("sequencer queue drained")
				return nil
			}
			if entry.header != nil {
				n.onHeader(ctx, entry.header)
			} else {
				n.onOperation(entry)
			}
		case <-ctx.Done():
			n.log.Info("sequencer stopped", "err", ctx.Err())
			return nil
		}
	}
}

// Follow forwards the headers of [watcher] into the queue.
func (n *Node) Follow(ctx context.Context, watcher HeaderWatcher) error {
	headers := make(chan *Header, n.config.HeaderQueueSize)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(headers)
		return watcher.Watch(gctx, headers)
	})
	g.Go(func() error {
		for header := range headers {
			if err := n.enqueue(gctx, &queueEntry{header: header}); err != nil {
				return err
			}
		}
		return nil
	})

	err := g.Wait()
	if errors.Is(err, ErrNodeClosed) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Shutdown stops accepting entries. Run returns once the queue is drained.
func (n *Node) Shutdown() {
	n.closeLock.Lock()
	defer n.closeLock.Unlock()

	if n.closed {
		return
	}
	n.closed = true
	close(n.queue)
}

func (n *Node) enqueue(ctx context.Context, entry *queueEntry) error {
	n.closeLock.RLock()
	defer n.closeLock.RUnlock()

	if n.closed {
		return ErrNodeClosed
	}
	select {
	case n.queue <- entry:
		return nil
	case <-n.done:
		return ErrNodeClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *Node) onOperation(entry *queueEntry) {
	if entry.queued != nil {
		entry.queued <- struct{}{}
	}

	msg := n.batcher.OnOperation(entry.op)
	start := time.Now()
	err := n.executor.onMessage(msg)
	n.metrics.kernelDuration.Observe(time.Since(start).Seconds())
	n.metrics.operations.Inc()
	n.pending.Store(int64(n.batcher.Len()))

	if err != nil {
		n.metrics.kernelFailures.Inc()
		n.log.Warn("kernel failed", "level", msg.Level, "id", msg.ID, "err", err)
	}
	if entry.applied != nil {
		entry.applied <- err
	}
}

func (n *Node) onHeader(ctx context.Context, header *Header) {
	closing := n.batcher.Level()
	used := n.batcher.NextSlot()
	batch := n.batcher.OnHeader(header)
	n.pending.Store(0)

	n.log.Debug("new header", "level", header.Level, "hash", header.Hash, "batch", len(batch))
	n.metrics.headers.Inc()

	if err := n.executor.onLevel(closing, header.Level, used); err != nil {
		n.metrics.kernelFailures.Inc()
		n.log.Warn("kernel failed on level boundary", "level", header.Level, "err", err)
	}
	if err := n.state.SetLevel(header.Level); err != nil {
		n.log.Error("failed to persist level", "level", header.Level, "err", err)
	}
	n.level.Store(header.Level)
	n.metrics.level.Set(float64(header.Level))

	if len(batch) == 0 {
		return
	}
	n.metrics.batchSize.Observe(float64(len(batch)))
	if err := n.injector.Inject(ctx, batch); err != nil {
		n.metrics.injectionFailures.Inc()
		n.log.Error("failed to inject batch", "level", closing, "size", len(batch), "err", err)
		return
	}
	n.metrics.injectedOps.Add(float64(len(batch)))

	total := 0
	for _, op := range batch {
		total += len(op)
	}
	n.log.Info("batch injected", "level", closing, "size", len(batch), "bytes", humanize.Bytes(uint64(total)))
}
