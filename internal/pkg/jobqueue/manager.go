package jobqueue

import (
	"strconv"
	"sync"

	"github.com/gofiber/fiber/v2/log"

	"github.com/MartinKoehl/OfficeBase/internal/pkg/env"
)

// Manager manages the global job queue. It is the concrete effects sink the
// lifecycle processors dispatch email and certificate work into: enqueue
// failures are logged, never surfaced, so a redis outage cannot fail or roll
// back a committed transition.
type Manager struct {
	queue   *Queue
	mu      sync.Mutex
	running bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// GetManager returns the global job queue manager (singleton)
func GetManager() *Manager {
	managerOnce.Do(func() {
		workerCount := 3
		if v, err := strconv.Atoi(env.GetEnv("JOBQUEUE_WORKERS", "")); err == nil && v > 0 {
			workerCount = v
		}
		globalManager = &Manager{
			queue: NewQueue(workerCount),
		}
	})
	return globalManager
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// Start starts the job queue workers
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}
	m.running = true
	log.Info("[JobQueue Manager] Starting job queue")
	m.queue.Start()
}

// Stop stops the job queue workers
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	m.running = false
	m.queue.Stop()
	log.Info("[JobQueue Manager] Stopped")
}

// DispatchEmail enqueues an outbound email for the given user.
func (m *Manager) DispatchEmail(userID uint, subject, body string) {
	payload := EmailDispatchPayload{UserID: userID, Subject: subject, Body: body}
	if _, err := m.queue.EnqueueJob(JobTypeEmailDispatch, payload.ToMap()); err != nil {
		log.Errorf("[JobQueue Manager] Failed to enqueue email for user %d: %v", userID, err)
	}
}

// ArchiveCertificate enqueues certificate generation for a subscription.
func (m *Manager) ArchiveCertificate(subscriptionID uint) {
	payload := CertificateArchivePayload{SubscriptionID: subscriptionID}
	if _, err := m.queue.EnqueueJob(JobTypeCertificateArchive, payload.ToMap()); err != nil {
		log.Errorf("[JobQueue Manager] Failed to enqueue certificate for subscription %d: %v", subscriptionID, err)
	}
}
