package health_service

import (
	"context"
	"log"
	"sync"
	"time"

	"meta-anchor/ledger"
	"meta-anchor/metrics"
	"meta-anchor/storage"
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"

	componentLedger  = "ledger"
	componentContent = "content_store"
)

// ComponentStatus connectivity of one dependency
type ComponentStatus struct {
	Connected   bool   `json:"connected"`
	BlockNumber uint64 `json:"block_number,omitempty"`
	ID          string `json:"id,omitempty"`
	Error       string `json:"error,omitempty"`
}

// HealthStatus overall status is healthy only when every component is connected
type HealthStatus struct {
	Status       string          `json:"status"`
	Ledger       ComponentStatus `json:"ledger"`
	ContentStore ComponentStatus `json:"content_store"`
	CheckedAt    int64           `json:"checked_at"`
}

// HealthService probes the ledger node and the content store
type HealthService struct {
	client  ledger.Client
	store   storage.ContentStore
	timeout time.Duration
	metrics *metrics.Metrics

	mu       sync.RWMutex
	last     *HealthStatus
	stopChan chan struct{}
	done     chan struct{}
	interval time.Duration
}

// NewHealthService create health service instance
func NewHealthService(client ledger.Client, store storage.ContentStore) *HealthService {
	return &HealthService{
		client:   client,
		store:    store,
		timeout:  5 * time.Second,
		interval: 30 * time.Second,
	}
}

// SetMetrics export component state as gauges
func (s *HealthService) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// SetInterval monitor period
func (s *HealthService) SetInterval(d time.Duration) {
	if d > 0 {
		s.interval = d
	}
}

// Check probes both components now
func (s *HealthService) Check(ctx context.Context) *HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	status := &HealthStatus{CheckedAt: time.Now().Unix()}

	height, err := s.client.BlockNumber(ctx)
	if err != nil {
		status.Ledger.Error = err.Error()
	} else {
		status.Ledger.Connected = true
		status.Ledger.BlockNumber = height
	}

	id, err := s.store.ID(ctx)
	if err != nil {
		status.ContentStore.Error = err.Error()
	} else {
		status.ContentStore.Connected = true
		status.ContentStore.ID = id
	}

	status.Status = StatusUnhealthy
	if status.Ledger.Connected && status.ContentStore.Connected {
		status.Status = StatusHealthy
	}

	s.metrics.SetComponentUp(componentLedger, status.Ledger.Connected)
	s.metrics.SetComponentUp(componentContent, status.ContentStore.Connected)

	s.mu.Lock()
	s.last = status
	s.mu.Unlock()
	return status
}

// Last most recent result, nil before the first check
func (s *HealthService) Last() *HealthStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// Start runs Check periodically until Stop
func (s *HealthService) Start() {
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	log.Printf("Health monitor started, interval=%s", s.interval)
	go s.run()
}

// Stop stops the monitor and waits for it to exit
func (s *HealthService) Stop() {
	if s.stopChan == nil {
		return
	}
	close(s.stopChan)
	<-s.done
	s.stopChan = nil
	log.Println("Health monitor stopped")
}

func (s *HealthService) run() {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.probe()
	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.probe()
		}
	}
}

func (s *HealthService) probe() {
	status := s.Check(context.Background())
	if status.Status != StatusHealthy {
		log.Printf("⚠️  Unhealthy: ledger=%v (%s) content_store=%v (%s)",
			status.Ledger.Connected, status.Ledger.Error,
			status.ContentStore.Connected, status.ContentStore.Error)
	}
}
