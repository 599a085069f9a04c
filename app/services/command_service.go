package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"satguard/app/models"
	"satguard/app/notify"
	"satguard/app/repo"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const satelliteCacheKeyPrefix = "satellite_commands:"

var (
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrTransitionConflict = errors.New("status transition conflict")
)

// transitions is the state machine guard table. COMPLETED and FAILED
// have no outgoing edges.
var transitions = map[models.CommandStatus][]models.CommandStatus{
	models.StatusPending:   {models.StatusPrepared},
	models.StatusPrepared:  {models.StatusExecuting},
	models.StatusExecuting: {models.StatusCompleted, models.StatusFailed},
}

func transitionAllowed(from, to models.CommandStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// CommandService owns the command state machine. All status mutations go
// through Transition under a per-command lock; different commands never
// contend.
type CommandService struct {
	commands *repo.CommandRepository
	hub      *notify.Hub
	rdb      *redis.Client // optional satellite command cache
	log      zerolog.Logger

	lockMu sync.Mutex
	locks  map[uint]*lockEntry
}

func NewCommandService(commands *repo.CommandRepository, hub *notify.Hub, rdb *redis.Client, log zerolog.Logger) *CommandService {
	return &CommandService{
		commands: commands,
		hub:      hub,
		rdb:      rdb,
		log:      log,
		locks:    make(map[uint]*lockEntry),
	}
}

// Lock serializes all lifecycle work for one command id. The returned
// func releases the lock. Used by the ingestion path to make
// the judge, recompute, transition and notify sequence atomic per command.
func (s *CommandService) Lock(commandID uint) func() {
	s.lockMu.Lock()
	e, ok := s.locks[commandID]
	if !ok {
		e = &lockEntry{}
		s.locks[commandID] = e
	}
	e.refs++
	s.lockMu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		s.lockMu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(s.locks, commandID)
		}
		s.lockMu.Unlock()
	}
}

// CreateCommand persists a new PENDING command, generating a correlation
// code when none is given, and seeds the satellite cache.
func (s *CommandService) CreateCommand(cmd *models.Command) error {
	if cmd.CommandCode == "" {
		cmd.CommandCode = uuid.NewString()
	}
	if cmd.Status == "" {
		cmd.Status = models.StatusPending
	}
	if cmd.CreateTime.IsZero() {
		cmd.CreateTime = time.Now()
	}
	if cmd.TimeoutDuration <= 0 {
		cmd.SetTimeoutDuration(models.DefaultTimeoutMinutes)
	}
	if !cmd.ExpireTime.After(cmd.ExecuteTime) {
		return fmt.Errorf("expire time %v must be after execute time %v", cmd.ExpireTime, cmd.ExecuteTime)
	}
	if err := s.commands.Create(cmd); err != nil {
		return fmt.Errorf("create command: %w", err)
	}
	s.cacheCommand(cmd)
	return nil
}

func (s *CommandService) FindByID(id uint) (*models.Command, error) {
	return s.commands.FindByID(id)
}

func (s *CommandService) FindByCode(code string) (*models.Command, error) {
	return s.commands.FindByCode(code)
}

// Prepare is the external PENDING to PREPARED trigger.
func (s *CommandService) Prepare(commandID uint, reason string) error {
	unlock := s.Lock(commandID)
	defer unlock()
	return s.Transition(commandID, models.StatusPrepared, reason)
}

// Fail applies an explicit failure signal to an executing command.
func (s *CommandService) Fail(commandID uint, reason string) error {
	unlock := s.Lock(commandID)
	defer unlock()
	return s.Transition(commandID, models.StatusFailed, reason)
}

// Transition moves a command to newStatus if the state machine permits
// it. Callers must hold the command's lock. A terminal command absorbs
// the event as an idempotent no-op with an audit log entry. Conflicting
// concurrent writes are re-read and retried; exhausted retries surface
// as a persistence-class error.
func (s *CommandService) Transition(commandID uint, newStatus models.CommandStatus, reason string) error {
	const maxRetries = 3
	for attempt := 0; attempt < maxRetries; attempt++ {
		cmd, err := s.commands.FindByID(commandID)
		if err != nil {
			return err
		}
		if cmd.Status.Terminal() {
			s.log.Info().
				Uint("command", commandID).
				Str("status", string(cmd.Status)).
				Str("ignored", string(newStatus)).
				Str("reason", reason).
				Msg("event for terminal command ignored")
			return nil
		}
		if cmd.Status == newStatus {
			return nil
		}
		if !transitionAllowed(cmd.Status, newStatus) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, cmd.Status, newStatus)
		}

		oldStatus := cmd.Status
		committed, err := s.commands.UpdateStatus(commandID, oldStatus, newStatus)
		if err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		if !committed {
			continue // lost a race, re-read and retry
		}

		cmd.Status = newStatus
		s.cacheCommand(cmd)
		s.log.Info().
			Uint("command", commandID).
			Str("from", string(oldStatus)).
			Str("to", string(newStatus)).
			Str("reason", reason).
			Msg("command status changed")
		s.emitTransition(cmd, oldStatus, newStatus, reason)
		return nil
	}
	return fmt.Errorf("%w: command %d -> %s", ErrTransitionConflict, commandID, newStatus)
}

func (s *CommandService) emitTransition(cmd *models.Command, oldStatus, newStatus models.CommandStatus, reason string) {
	now := time.Now()
	s.hub.Publish(notify.Event{
		Topic:     notify.TopicStatus,
		CommandID: cmd.ID,
		Payload: notify.StatusChangeEvent{
			CommandID:  cmd.ID,
			OldStatus:  oldStatus,
			NewStatus:  newStatus,
			Reason:     reason,
			ChangeTime: now,
		},
	})

	if !newStatus.Terminal() {
		return
	}
	topic := notify.TopicCompleted
	if newStatus == models.StatusFailed {
		topic = notify.TopicFailed
	}
	s.hub.Publish(notify.Event{
		Topic:     topic,
		CommandID: cmd.ID,
		Payload: notify.TerminalEvent{
			CommandID:   cmd.ID,
			CommandCode: cmd.CommandCode,
			SatelliteID: cmd.SatelliteID,
			Content:     cmd.Content,
			Reason:      reason,
			Time:        now,
		},
	})
}

// Stats counts commands per status for the periodic broadcast.
func (s *CommandService) Stats() (*notify.SystemStatsEvent, error) {
	total, err := s.commands.CountAll()
	if err != nil {
		return nil, err
	}
	stats := &notify.SystemStatsEvent{Total: total, UpdateTime: time.Now()}
	for _, pair := range []struct {
		status models.CommandStatus
		dest   *int64
	}{
		{models.StatusPending, &stats.Pending},
		{models.StatusPrepared, &stats.Prepared},
		{models.StatusExecuting, &stats.Executing},
		{models.StatusCompleted, &stats.Completed},
		{models.StatusFailed, &stats.Failed},
	} {
		n, err := s.commands.CountByStatus(pair.status)
		if err != nil {
			return nil, err
		}
		*pair.dest = n
	}
	return stats, nil
}

// CacheSatelliteCommands refreshes the redis hash for every PENDING and
// PREPARED command, used by the resynchronization sweep.
func (s *CommandService) CacheSatelliteCommands() (int, error) {
	if s.rdb == nil {
		return 0, nil
	}
	cmds, err := s.commands.ListPendingAndPrepared()
	if err != nil {
		return 0, fmt.Errorf("list pending commands: %w", err)
	}
	for i := range cmds {
		s.cacheCommand(&cmds[i])
	}
	return len(cmds), nil
}

// CachedCommands lists the cached commands for one satellite.
func (s *CommandService) CachedCommands(ctx context.Context, satelliteID string) ([]models.Command, error) {
	if s.rdb == nil {
		return nil, nil
	}
	entries, err := s.rdb.HGetAll(ctx, satelliteCacheKeyPrefix+satelliteID).Result()
	if err != nil {
		return nil, fmt.Errorf("read satellite cache: %w", err)
	}
	cmds := make([]models.Command, 0, len(entries))
	for _, body := range entries {
		var cmd models.Command
		if err := json.Unmarshal([]byte(body), &cmd); err != nil {
			continue
		}
		cmds = append(cmds, cmd)
	}
	return cmds, nil
}

// cacheCommand writes the command into its satellite's hash with the
// hash expiring at the command's expire time. Best-effort only.
func (s *CommandService) cacheCommand(cmd *models.Command) {
	if s.rdb == nil {
		return
	}
	body, err := json.Marshal(cmd)
	if err != nil {
		return
	}
	ctx := context.Background()
	key := satelliteCacheKeyPrefix + cmd.SatelliteID
	if err := s.rdb.HSet(ctx, key, strconv.FormatUint(uint64(cmd.ID), 10), body).Err(); err != nil {
		s.log.Warn().Err(err).Uint("command", cmd.ID).Msg("satellite cache write failed")
		return
	}
	if ttl := time.Until(cmd.ExpireTime); ttl > 0 {
		s.rdb.Expire(ctx, key, ttl)
	}
}
