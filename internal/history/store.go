package history

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tokenlock/internal/monitor"
)

// PresenceEvent is one recorded transition of the presence monitor.
type PresenceEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Timestamp time.Time `gorm:"not null;index" json:"timestamp"`
	Event     string    `gorm:"not null;index" json:"event"`
	Countdown int       `gorm:"not null;default:0" json:"countdown"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// Store persists presence events to a local sqlite database. It implements
// the monitor's event sink; recording failures are logged and swallowed so
// a broken database can never disturb the poll loop.
type Store struct {
	db *gorm.DB
}

// Open connects to the event database, creating the directory and schema
// as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrap(err, "failed to create history directory")
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open history database")
	}

	if err := db.AutoMigrate(&PresenceEvent{}); err != nil {
		return nil, errors.Wrap(err, "failed to migrate history schema")
	}

	return &Store{db: db}, nil
}

// Record implements monitor.EventSink.
func (s *Store) Record(event monitor.Event, countdown int) {
	e := &PresenceEvent{
		Timestamp: time.Now(),
		Event:     string(event),
		Countdown: countdown,
	}
	if err := s.db.Create(e).Error; err != nil {
		log.Printf("failed to record presence event %q: %v", event, err)
	}
}

// Recent returns up to n events, newest first.
func (s *Store) Recent(n int) ([]PresenceEvent, error) {
	var events []PresenceEvent
	err := s.db.Order("timestamp desc").Limit(n).Find(&events).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to query presence events")
	}
	return events, nil
}

// CountByEvent returns how many times each event type was recorded.
func (s *Store) CountByEvent() (map[string]int64, error) {
	type row struct {
		Event string
		N     int64
	}
	var rows []row
	err := s.db.Model(&PresenceEvent{}).
		Select("event, count(*) as n").
		Group("event").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to summarize presence events")
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Event] = r.N
	}
	return counts, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return errors.Wrap(err, "failed to get underlying sql.DB")
	}
	return sqlDB.Close()
}
