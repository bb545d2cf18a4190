package storage

import (
	"sync"
	"time"
	"wqd/internal/providers"
	"wqd/internal/storage/interfaces"
	"wqd/internal/structures"

	"github.com/roylee0704/gron"
)

type Scheduler struct {
	config  *structures.Config
	logger  providers.Logger
	backend *Backend
	gate    interfaces.AlertEvictor
	metrics providers.MetricsProviderInterface
	cron    *gron.Cron
	opsMu   sync.Mutex
	now     func() time.Time
}

func (s *Scheduler) Init() {
	s.cron = gron.New()

	if s.backend.Snapshots != nil && s.config.Persistence.SaveInterval > 0 {
		s.cron.AddFunc(gron.Every(s.config.Persistence.SaveInterval), func() {
			if err := s.save(); err != nil {
				s.logger.Errorf(providers.TypeApp, "Error while persisting readings: %s", err)
				return
			}
			s.logger.Debugf(providers.TypeApp, "Persisted readings to file %s", s.config.Persistence.FilePath)
		})
	}

	if s.config.Alert.EvictInterval > 0 {
		s.cron.AddFunc(gron.Every(s.config.Alert.EvictInterval), func() {
			s.EvictAlertStates()
		})
	}

	s.cron.Start()
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// EvictAlertStates drops idle alert state and returns the number removed.
func (s *Scheduler) EvictAlertStates() int {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	evicted := s.gate.Evict(s.now())
	s.metrics.SetAlertStates(s.gate.Len())
	if evicted > 0 {
		s.logger.Infof(providers.TypeApp, "Evicted %d idle alert states", evicted)
	}
	return evicted
}

func (s *Scheduler) Restore() error {
	if s.backend.Snapshots == nil {
		return nil
	}
	return s.backend.Snapshots.LoadFromFile(s.config.Persistence.FilePath)
}

func (s *Scheduler) Persist() error {
	if s.backend.Snapshots == nil {
		return nil
	}
	s.logger.Infof(providers.TypeApp, "Persisting readings to file...")
	err := s.save()
	if err != nil {
		s.logger.Errorf(providers.TypeApp, "Error while persisting readings: %s", err)
		return err
	}
	return nil
}

func (s *Scheduler) save() error {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	start := time.Now()
	err := s.backend.Snapshots.SaveToFile(s.config.Persistence.FilePath)
	s.metrics.ObservePersistenceDuration(time.Since(start))
	return err
}

func NewScheduler(config *structures.Config, logger providers.Logger, backend *Backend, gate interfaces.AlertEvictor, metrics providers.MetricsProviderInterface) interfaces.SchedulerInterface {
	return &Scheduler{
		config:  config,
		logger:  logger,
		backend: backend,
		gate:    gate,
		metrics: metrics,
		now:     time.Now,
	}
}
