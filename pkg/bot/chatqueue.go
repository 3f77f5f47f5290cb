package bot

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// chatEntry holds the updates of one chat waiting for its worker
type chatEntry struct {
	pending []Message
}

// chatQueuePool keeps one FIFO per chat with at most one worker draining it, so
// updates of a chat are handled in arrival order while different chats run in
// parallel. An entry exists exactly while its worker runs and is removed when
// the queue drains, so idle chats cost nothing.
type chatQueuePool struct {
	entries    map[int64]*chatEntry
	mu         sync.Mutex
	maxPending int
	log        *logrus.Entry
}

func newChatQueuePool(maxPending int, log *logrus.Entry) *chatQueuePool {
	if maxPending <= 0 {
		maxPending = 20
	}
	return &chatQueuePool{
		entries:    make(map[int64]*chatEntry),
		maxPending: maxPending,
		log:        log,
	}
}

// enqueue appends msg to its chat queue. startWorker is true when the caller must
// start a worker for the chat. accepted is false when the backlog is full.
func (p *chatQueuePool) enqueue(msg Message) (startWorker, accepted bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, exists := p.entries[msg.ChatID]
	if !exists {
		p.entries[msg.ChatID] = &chatEntry{pending: []Message{msg}}
		return true, true
	}
	if len(entry.pending) >= p.maxPending {
		p.log.WithFields(logrus.Fields{"chat_id": msg.ChatID, "pending": len(entry.pending)}).Warn("Chat backlog full, dropping update")
		return false, false
	}
	entry.pending = append(entry.pending, msg)
	return false, true
}

// next pops the oldest message of chatID. When the queue is empty the entry is
// removed and ok is false; the worker must then exit.
func (p *chatQueuePool) next(chatID int64) (msg Message, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, exists := p.entries[chatID]
	if !exists || len(entry.pending) == 0 {
		delete(p.entries, chatID)
		return Message{}, false
	}
	msg = entry.pending[0]
	entry.pending[0] = Message{}
	entry.pending = entry.pending[1:]
	return msg, true
}

// abandon drops whatever is still queued for chatID and returns how many messages were lost
func (p *chatQueuePool) abandon(chatID int64) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, exists := p.entries[chatID]
	if !exists {
		return 0
	}
	delete(p.entries, chatID)
	return len(entry.pending)
}

// Len returns the number of chats with a running worker
func (p *chatQueuePool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}
