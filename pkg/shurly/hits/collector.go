// Package hits persists page hits off the redirect hot path.
//
// Hits travel over a bounded channel to a single writer goroutine. The
// redirect handler never blocks on the database: when the buffer is full
// the hit is dropped and counted instead.
package hits

import (
	"log"

	"gorm.io/gorm"

	"github.com/workplacebuddy/shurly/pkg/shurly/metrics"
	"github.com/workplacebuddy/shurly/pkg/shurly/models"
)

// Collector receives page hits and writes them to the database in the
// background
type Collector struct {
	db      *gorm.DB
	metrics *metrics.Collector
	ch      chan models.Hit
	done    chan struct{}
}

// NewCollector starts a collector with the given buffer capacity
func NewCollector(db *gorm.DB, buffer int, m *metrics.Collector) *Collector {
	c := &Collector{
		db:      db,
		metrics: m,
		ch:      make(chan models.Hit, buffer),
		done:    make(chan struct{}),
	}
	go c.run()
	return c
}

// Record queues a hit for persistence. It never blocks; when the buffer
// is full the hit is dropped.
func (c *Collector) Record(hit models.Hit) {
	select {
	case c.ch <- hit:
	default:
		c.metrics.RecordHitDropped()
		log.Printf("hits: buffer full, dropping hit for destination %s", hit.DestinationID)
	}
}

// Close stops accepting hits and blocks until every buffered hit has been
// written. Record must not be called after Close.
func (c *Collector) Close() {
	close(c.ch)
	<-c.done
}

func (c *Collector) run() {
	defer close(c.done)
	for hit := range c.ch {
		if err := c.db.Create(&hit).Error; err != nil {
			log.Printf("hits: saving hit: %v", err)
			continue
		}
		c.metrics.RecordHitSaved()
	}
}
