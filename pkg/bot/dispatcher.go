package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/Sriram-PR/wiki-bot/pkg/metrics"
)

// Handler processes one message. *Router satisfies it.
type Handler interface {
	Handle(ctx context.Context, msg Message) error
}

// DispatcherOptions bounds the work done for incoming updates
type DispatcherOptions struct {
	MaxConcurrent     int           // Updates handled at the same time across all chats
	HandlerTimeout    time.Duration // Deadline for one update; 0 = none
	MaxPendingPerChat int           // Backlog per chat before updates are dropped
}

// Dispatcher pulls updates from a Transport and runs the Handler on them.
// At most one update per chat is in flight; updates of a chat keep their order.
type Dispatcher struct {
	updates interface {
		Updates(ctx context.Context) (<-chan Message, error)
	}
	handler Handler
	sem     *semaphore.Weighted
	chats   *chatQueuePool
	timeout time.Duration
	log     *logrus.Entry
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher reading from transport
func NewDispatcher(transport Transport, handler Handler, opts DispatcherOptions, log *logrus.Entry) *Dispatcher {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 8
	}
	log = log.WithField("component", "dispatcher")
	return &Dispatcher{
		updates: transport,
		handler: handler,
		sem:     semaphore.NewWeighted(int64(opts.MaxConcurrent)),
		chats:   newChatQueuePool(opts.MaxPendingPerChat, log),
		timeout: opts.HandlerTimeout,
		log:     log,
	}
}

// Run consumes updates until ctx is done or the update stream closes, then waits
// for in-flight handlers to finish.
func (d *Dispatcher) Run(ctx context.Context) error {
	updates, err := d.updates.Updates(ctx)
	if err != nil {
		return fmt.Errorf("starting update stream: %w", err)
	}
	d.log.Info("Dispatcher started")
	defer func() {
		d.wg.Wait()
		d.log.Info("Dispatcher stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-updates:
			if !ok {
				return nil
			}
			d.dispatch(ctx, msg)
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, msg Message) {
	msg.RequestID = uuid.NewString()
	startWorker, accepted := d.chats.enqueue(msg)
	if !accepted {
		metrics.IncHandlerError("dispatch", "Backlog_Full")
		return
	}
	if startWorker {
		d.wg.Add(1)
		go d.drain(ctx, msg.ChatID)
	}
}

// drain handles the queued updates of one chat in order
func (d *Dispatcher) drain(ctx context.Context, chatID int64) {
	defer d.wg.Done()
	for {
		msg, ok := d.chats.next(chatID)
		if !ok {
			return
		}
		if err := d.sem.Acquire(ctx, 1); err != nil {
			lost := d.chats.abandon(chatID) + 1
			d.log.WithField("chat_id", chatID).Warnf("Shutting down, %d queued update(s) not handled", lost)
			return
		}
		d.handle(ctx, msg)
		d.sem.Release(1)
	}
}

// handle runs the handler with a deadline and turns a panic into a log line
func (d *Dispatcher) handle(ctx context.Context, msg Message) {
	reqLog := d.log.WithFields(logrus.Fields{"chat_id": msg.ChatID, "request_id": msg.RequestID})

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			reqLog.Errorf("PANIC while handling update: %v\n%s", r, string(debug.Stack()))
			metrics.IncHandlerError("dispatch", "Panic")
		}
	}()

	// Errors are logged and counted by the handler itself
	_ = d.handler.Handle(ctx, msg)
}
