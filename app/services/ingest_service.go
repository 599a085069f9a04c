package services

import (
	"context"
	"errors"
	"time"

	"satguard/app/dto"
	"satguard/app/models"
	"satguard/app/notify"
	"satguard/app/repo"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// IngestService is the entrypoint for inbound telemetry. Process runs
// judge, completion recompute, transition and notify as one atomic unit
// under the command's lock.
type IngestService struct {
	commands   *CommandService
	judge      *JudgeService
	completion *CompletionService
	hub        *notify.Hub
	log        zerolog.Logger

	rdb     *redis.Client // optional bus subscription
	channel string
}

func NewIngestService(commands *CommandService, judge *JudgeService, completion *CompletionService, hub *notify.Hub, rdb *redis.Client, channel string, log zerolog.Logger) *IngestService {
	return &IngestService{
		commands:   commands,
		judge:      judge,
		completion: completion,
		hub:        hub,
		rdb:        rdb,
		channel:    channel,
		log:        log,
	}
}

// Process handles one raw bus payload. Malformed payloads and unresolved
// command codes are logged and dropped; unbound samples are dropped
// silently. Persistence failures are returned so the caller can
// redeliver; replaying an already-processed payload is safe.
func (s *IngestService) Process(raw []byte) error {
	msg, err := dto.ParseTelemetryMessage(raw, time.Now())
	if err != nil {
		s.log.Warn().Err(err).Msg("malformed telemetry payload dropped")
		return nil
	}

	cmd, err := s.commands.FindByCode(msg.CommandCode)
	if errors.Is(err, repo.ErrCommandNotFound) {
		s.log.Info().Str("commandCode", msg.CommandCode).Msg("telemetry for unknown command code dropped")
		return nil
	}
	if err != nil {
		return err
	}

	unlock := s.commands.Lock(cmd.ID)
	defer unlock()

	// re-read under the lock so the status check is current
	cmd, err = s.commands.FindByID(cmd.ID)
	if err != nil {
		return err
	}

	verdict, judged, err := s.judge.Judge(cmd.ID, msg.ParamCode, msg.ActualValue, string(raw), msg.ReceivedAt)
	if err != nil {
		return err
	}
	if !judged {
		return nil
	}

	// first bound sample moves a prepared command into execution
	if cmd.Status == models.StatusPrepared {
		if err := s.commands.Transition(cmd.ID, models.StatusExecuting, "telemetry received, execution started"); err != nil {
			return err
		}
		cmd.Status = models.StatusExecuting
	}

	s.hub.Publish(notify.Event{
		Topic:     notify.TopicJudgment,
		CommandID: cmd.ID,
		Payload: notify.JudgmentEvent{
			CommandID:     cmd.ID,
			ParamCode:     msg.ParamCode,
			ParamName:     msg.ParamName,
			ExpectedValue: msg.ExpectedValue,
			ActualValue:   msg.ActualValue,
			Verdict:       verdict,
			JudgeTime:     time.Now(),
		},
	})

	if cmd.Status != models.StatusExecuting {
		return nil
	}

	complete, err := s.completion.IsComplete(cmd.ID)
	if err != nil {
		return err
	}
	if complete {
		return s.commands.Transition(cmd.ID, models.StatusCompleted, "all required telemetry satisfied")
	}

	stats, err := s.completion.Stats(cmd.ID)
	if err != nil {
		return err
	}
	s.hub.Publish(notify.Event{
		Topic:     notify.TopicProgress,
		CommandID: cmd.ID,
		Payload: notify.ProgressEvent{
			CommandID:             cmd.ID,
			TotalRules:            stats.TotalRules,
			SatisfiedRules:        stats.SatisfiedRules,
			Progress:              stats.Progress,
			UnsatisfiedParamCodes: stats.UnsatisfiedParamCodes,
			UpdateTime:            time.Now(),
		},
	})
	return nil
}

// Consume subscribes to the telemetry bus channel and feeds payloads to
// Process until the context is cancelled. Processing errors are logged;
// the subscription keeps going.
func (s *IngestService) Consume(ctx context.Context) error {
	if s.rdb == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	sub := s.rdb.Subscribe(ctx, s.channel)
	defer sub.Close()

	s.log.Info().Str("channel", s.channel).Msg("telemetry consumer started")
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			if err := s.Process([]byte(m.Payload)); err != nil {
				s.log.Error().Err(err).Msg("telemetry processing failed")
			}
		}
	}
}
