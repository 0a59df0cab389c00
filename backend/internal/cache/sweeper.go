package cache

import (
	"log"
	"sync"
	"time"

	"github.com/Jancy0713/jancy-template-end/backend/internal/models"

	"gorm.io/gorm"
)

// Sweeper periodically removes expired refresh tokens and blacklist rows
// that can no longer verify. Blacklist entries only matter while the access
// token they revoke is still inside its signing TTL.
type Sweeper struct {
	db        *gorm.DB
	interval  time.Duration
	accessTTL time.Duration

	mu      sync.Mutex
	running bool
	done    chan struct{}
	wg      sync.WaitGroup
}

func NewSweeper(db *gorm.DB, interval, accessTTL time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{
		db:        db,
		interval:  interval,
		accessTTL: accessTTL,
	}
}

func (s *Sweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.done = make(chan struct{})

	s.wg.Add(1)
	go s.loop()

	log.Printf("🧹 Token sweeper started (interval: %v)", s.interval)
}

func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.done)
	s.mu.Unlock()

	s.wg.Wait()
	log.Println("🧹 Token sweeper stopped")
}

func (s *Sweeper) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Sweep runs one cleanup pass. Exposed so tests and shutdown paths can
// trigger it without waiting for the ticker.
func (s *Sweeper) Sweep() {
	now := time.Now()

	res := s.db.Where("expires_at < ?", now).Delete(&models.RefreshToken{})
	if res.Error != nil {
		log.Printf("⚠️  Sweeper: refresh token cleanup failed: %v", res.Error)
	} else if res.RowsAffected > 0 {
		log.Printf("🧹 Sweeper: removed %d expired refresh tokens", res.RowsAffected)
	}

	cutoff := now.Add(-s.accessTTL)
	res = s.db.Where("created_at < ?", cutoff).Delete(&models.BlacklistedToken{})
	if res.Error != nil {
		log.Printf("⚠️  Sweeper: blacklist cleanup failed: %v", res.Error)
	} else if res.RowsAffected > 0 {
		log.Printf("🧹 Sweeper: removed %d stale blacklist entries", res.RowsAffected)
	}
}
