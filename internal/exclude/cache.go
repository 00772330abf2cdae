// Package exclude keeps, per client, the blobs currently being sent or
// already sent so one client never receives the same blob twice at once.
package exclude

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/model"
)

// Result of AddIfAbsent
type Result int

const (
	Added Result = iota
	AlreadyInProgress
	AlreadyCompleted
)

func (r Result) String() string {
	switch r {
	case Added:
		return "added"
	case AlreadyInProgress:
		return "in_progress"
	default:
		return "completed"
	}
}

type entryState int

const (
	stateInProgress entryState = iota
	stateCompleted
)

type entry struct {
	state      entryState
	insertedAt time.Time
}

// Config holds exclude cache limits
type Config struct {
	MaxEntriesPerClient int
	StaleAfter          time.Duration
	PurgeInterval       time.Duration
}

// Cache is the process-wide exclude table
type Cache struct {
	config  Config
	clients map[string]map[model.BlobID]*entry
	mu      sync.Mutex
	logger  *zap.Logger
	now     func() time.Time
}

// New creates an empty exclude cache
func New(cfg Config, logger *zap.Logger) *Cache {
	return &Cache{
		config:  cfg,
		clients: make(map[string]map[model.BlobID]*entry),
		logger:  logger,
		now:     time.Now,
	}
}

// AddIfAbsent claims the blob for the client. Only the caller that gets
// Added may deliver it.
func (c *Cache) AddIfAbsent(clientID string, id model.BlobID) Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	blobs, ok := c.clients[clientID]
	if !ok {
		blobs = make(map[model.BlobID]*entry)
		c.clients[clientID] = blobs
	}

	if e, found := blobs[id]; found {
		if e.state == stateCompleted {
			return AlreadyCompleted
		}
		return AlreadyInProgress
	}

	if c.config.MaxEntriesPerClient > 0 && len(blobs) >= c.config.MaxEntriesPerClient {
		c.evictOldestCompleted(clientID, blobs)
	}
	blobs[id] = &entry{state: stateInProgress, insertedAt: c.now()}
	return Added
}

// MarkCompleted records that the blob was fully sent
func (c *Cache) MarkCompleted(clientID string, id model.BlobID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, found := c.clients[clientID][id]
	if !found {
		return false
	}
	e.state = stateCompleted
	return true
}

// Remove frees the slot. Owners call it on every exit path.
func (c *Cache) Remove(clientID string, id model.BlobID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	blobs, ok := c.clients[clientID]
	if !ok {
		return
	}
	delete(blobs, id)
	if len(blobs) == 0 {
		delete(c.clients, clientID)
	}
}

// evictOldestCompleted must be called with the lock held
func (c *Cache) evictOldestCompleted(clientID string, blobs map[model.BlobID]*entry) {
	var (
		oldestID model.BlobID
		oldest   *entry
	)
	for id, e := range blobs {
		if e.state != stateCompleted {
			continue
		}
		if oldest == nil || e.insertedAt.Before(oldest.insertedAt) {
			oldestID, oldest = id, e
		}
	}
	if oldest != nil {
		delete(blobs, oldestID)
		c.logger.Debug("Evicted exclude entry",
			zap.String("client_id", clientID),
			zap.String("blob_id", oldestID.String()))
	}
}

// Purge drops entries older than StaleAfter and returns how many went
func (c *Cache) Purge() int {
	if c.config.StaleAfter <= 0 {
		return 0
	}
	cutoff := c.now().Add(-c.config.StaleAfter)

	c.mu.Lock()
	defer c.mu.Unlock()

	purged := 0
	for clientID, blobs := range c.clients {
		for id, e := range blobs {
			if e.insertedAt.Before(cutoff) {
				delete(blobs, id)
				purged++
			}
		}
		if len(blobs) == 0 {
			delete(c.clients, clientID)
		}
	}
	return purged
}

// Run purges stale entries every PurgeInterval until ctx is done
func (c *Cache) Run(ctx context.Context) {
	if c.config.PurgeInterval <= 0 {
		return
	}
	ticker := time.NewTicker(c.config.PurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.Purge(); n > 0 {
				c.logger.Warn("Purged stale exclude entries", zap.Int("count", n))
			}
		}
	}
}

// Stats is a snapshot of the table
type Stats struct {
	Clients    int `json:"clients"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
}

// Stats counts entries by state
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{Clients: len(c.clients)}
	for _, blobs := range c.clients {
		for _, e := range blobs {
			if e.state == stateCompleted {
				s.Completed++
			} else {
				s.InProgress++
			}
		}
	}
	return s
}
