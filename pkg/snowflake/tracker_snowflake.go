// Package snowflake generates the 64-bit event identifiers.
//
// Events arrive in bursts when a mailbox is backfilled, so event IDs must
// be cheap to mint without a database round trip and still sort in
// arrival order. A snowflake layout gives both: 41 bits of milliseconds
// since the service epoch, 10 bits of worker ID so API and worker
// processes never collide, and a 12-bit per-millisecond sequence.
package snowflake

import (
	"errors"
	"sync"
	"time"
)

const (
	// epoch is 2024-01-01 00:00:00 UTC; 41 timestamp bits reach ~69
	// years past that.
	epoch int64 = 1704067200000

	workerIDBits = 10
	sequenceBits = 12

	maxWorkerID = (1 << workerIDBits) - 1
	maxSequence = (1 << sequenceBits) - 1

	timestampShift = workerIDBits + sequenceBits
	workerIDShift  = sequenceBits
)

var (
	ErrInvalidWorkerID = errors.New("worker ID must be between 0 and 1023")
	ErrClockMovedBack  = errors.New("clock moved backwards")
)

// Generator mints event IDs for one worker. Safe for concurrent use.
type Generator struct {
	mu         sync.Mutex
	workerID   int64
	sequence   int64
	lastMillis int64
}

// NewGenerator creates a generator for the given worker ID (0-1023).
func NewGenerator(workerID int64) (*Generator, error) {
	if workerID < 0 || workerID > maxWorkerID {
		return nil, ErrInvalidWorkerID
	}
	return &Generator{workerID: workerID}, nil
}

// Generate returns the next ID. Fails only when the wall clock runs
// backwards past the last mint, which the caller should treat as fatal
// rather than retry into duplicate territory.
func (g *Generator) Generate() (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now().UnixMilli()
	if now < g.lastMillis {
		return 0, ErrClockMovedBack
	}

	if now == g.lastMillis {
		g.sequence = (g.sequence + 1) & maxSequence
		if g.sequence == 0 {
			// sequence exhausted for this millisecond
			for now <= g.lastMillis {
				time.Sleep(100 * time.Microsecond)
				now = time.Now().UnixMilli()
			}
		}
	} else {
		g.sequence = 0
	}
	g.lastMillis = now

	id := ((now - epoch) << timestampShift) |
		(g.workerID << workerIDShift) |
		g.sequence
	return id, nil
}

// MustGenerate returns the next ID and panics on clock regression. Used
// inside pipeline transactions where an unusable clock is not recoverable.
func (g *Generator) MustGenerate() int64 {
	id, err := g.Generate()
	if err != nil {
		panic(err)
	}
	return id
}

// Parse splits an event ID back into its components.
func Parse(id int64) (timestamp time.Time, workerID int64, sequence int64) {
	timestamp = time.UnixMilli((id >> timestampShift) + epoch)
	workerID = (id >> workerIDShift) & maxWorkerID
	sequence = id & maxSequence
	return
}

// Timestamp returns the mint time encoded in an event ID.
func Timestamp(id int64) time.Time {
	return time.UnixMilli((id >> timestampShift) + epoch)
}
