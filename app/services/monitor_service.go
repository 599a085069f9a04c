package services

import (
	"context"
	"time"

	"satguard/app/models"
	"satguard/app/notify"
	"satguard/app/repo"

	"github.com/rs/zerolog"
)

// MonitorConfig carries the sweep cadences and the sample retention
// window.
type MonitorConfig struct {
	TimeoutInterval   time.Duration
	ResyncInterval    time.Duration
	StatsInterval     time.Duration
	RetentionInterval time.Duration
	Retention         time.Duration
}

func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		TimeoutInterval:   60 * time.Second,
		ResyncInterval:    30 * time.Second,
		StatsInterval:     5 * time.Minute,
		RetentionInterval: 24 * time.Hour,
		Retention:         7 * 24 * time.Hour,
	}
}

// MonitorService runs the periodic sweeps: failing stalled commands,
// resynchronizing the satellite cache, broadcasting aggregate stats and
// pruning old samples. Each sweep checks the context between commands so
// shutdown never waits on a full pass.
type MonitorService struct {
	cfg      MonitorConfig
	commands *CommandService
	cmdRepo  *repo.CommandRepository
	samples  *repo.SampleRepository
	hub      *notify.Hub
	log      zerolog.Logger
}

func NewMonitorService(cfg MonitorConfig, commands *CommandService, cmdRepo *repo.CommandRepository, samples *repo.SampleRepository, hub *notify.Hub, log zerolog.Logger) *MonitorService {
	return &MonitorService{cfg: cfg, commands: commands, cmdRepo: cmdRepo, samples: samples, hub: hub, log: log}
}

// Run blocks until ctx is cancelled.
func (s *MonitorService) Run(ctx context.Context) error {
	timeout := time.NewTicker(s.cfg.TimeoutInterval)
	resync := time.NewTicker(s.cfg.ResyncInterval)
	stats := time.NewTicker(s.cfg.StatsInterval)
	retention := time.NewTicker(s.cfg.RetentionInterval)
	defer timeout.Stop()
	defer resync.Stop()
	defer stats.Stop()
	defer retention.Stop()

	s.log.Info().
		Dur("timeout", s.cfg.TimeoutInterval).
		Dur("resync", s.cfg.ResyncInterval).
		Msg("monitor started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timeout.C:
			s.TimeoutSweep(ctx)
		case <-resync.C:
			s.resyncSweep()
		case <-stats.C:
			s.statsSweep()
		case <-retention.C:
			s.retentionSweep()
		}
	}
}

// TimeoutSweep fails every EXECUTING command whose expire time has
// passed. The command lock is taken per command, never across the sweep.
func (s *MonitorService) TimeoutSweep(ctx context.Context) {
	expired, err := s.cmdRepo.ListExpiredExecuting(time.Now())
	if err != nil {
		s.log.Error().Err(err).Msg("timeout sweep query failed")
		return
	}
	failed := 0
	for i := range expired {
		if ctx.Err() != nil {
			return
		}
		cmd := &expired[i]
		unlock := s.commands.Lock(cmd.ID)
		err := s.commands.Transition(cmd.ID, models.StatusFailed, "command timed out")
		unlock()
		if err != nil {
			s.log.Error().Err(err).Uint("command", cmd.ID).Msg("timeout transition failed")
			continue
		}
		failed++
	}
	if failed > 0 {
		s.log.Info().Int("failed", failed).Msg("timeout sweep completed")
	}
}

func (s *MonitorService) resyncSweep() {
	n, err := s.commands.CacheSatelliteCommands()
	if err != nil {
		s.log.Error().Err(err).Msg("resync sweep failed")
		return
	}
	s.log.Debug().Int("commands", n).Msg("resync sweep completed")
}

func (s *MonitorService) statsSweep() {
	stats, err := s.commands.Stats()
	if err != nil {
		s.log.Error().Err(err).Msg("stats sweep failed")
		return
	}
	s.hub.Publish(notify.Event{Topic: notify.TopicSystemStats, Payload: *stats})
}

func (s *MonitorService) retentionSweep() {
	cutoff := time.Now().Add(-s.cfg.Retention)
	n, err := s.samples.DeleteReceivedBefore(cutoff)
	if err != nil {
		s.log.Error().Err(err).Msg("retention sweep failed")
		return
	}
	if n > 0 {
		s.log.Info().Int64("deleted", n).Time("cutoff", cutoff).Msg("retention sweep completed")
	}
}
