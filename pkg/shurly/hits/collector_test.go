package hits

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/workplacebuddy/shurly/pkg/shurly/metrics"
	"github.com/workplacebuddy/shurly/pkg/shurly/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

func testHit() models.Hit {
	return models.Hit{
		CreatedAt:     time.Now(),
		DestinationID: uuid.New(),
		IPAddress:     "192.0.2.1",
		UserAgent:     "test-agent",
	}
}

func TestCollectorDrainsOnClose(t *testing.T) {
	db := setupTestDB(t)
	collector := NewCollector(db, 100, metrics.NewCollector(prometheus.NewRegistry()))

	for i := 0; i < 50; i++ {
		collector.Record(testHit())
	}
	collector.Close()

	var count int64
	db.Model(&models.Hit{}).Count(&count)
	if count != 50 {
		t.Errorf("Expected 50 hits after drain, got %d", count)
	}
}

func TestCollectorDropsWhenFull(t *testing.T) {
	db := setupTestDB(t)

	// an unstarted collector never empties its channel, so overflowing it is
	// deterministic
	c := &Collector{
		db:      db,
		metrics: metrics.NewCollector(prometheus.NewRegistry()),
		ch:      make(chan models.Hit, 2),
		done:    make(chan struct{}),
	}

	for i := 0; i < 5; i++ {
		c.Record(testHit())
	}

	if len(c.ch) != 2 {
		t.Errorf("Expected 2 buffered hits, got %d", len(c.ch))
	}
}
