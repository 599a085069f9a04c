package services

import (
	"fmt"
	"math"

	"satguard/app/models"
	"satguard/app/repo"
)

// CompletionService derives weighted progress and required-satisfaction
// status from a command's judged telemetry history.
type CompletionService struct {
	rules   *repo.RuleRepository
	samples *repo.SampleRepository
}

// CompletionStats summarizes rule satisfaction for a command.
type CompletionStats struct {
	TotalRules            int      `json:"totalRules"`
	RequiredRules         int      `json:"requiredRules"`
	SatisfiedRules        int      `json:"satisfiedRules"`
	UnsatisfiedParamCodes []string `json:"unsatisfiedParamCodes"`
	Progress              int      `json:"progress"`
}

func NewCompletionService(rules *repo.RuleRepository, samples *repo.SampleRepository) *CompletionService {
	return &CompletionService{rules: rules, samples: samples}
}

// Progress returns 0..100 as the weight-share of currently satisfied
// rules. A command with no rules, or only zero-weight rules, is trivially
// at 100.
func (s *CompletionService) Progress(commandID uint) (int, error) {
	stats, err := s.Stats(commandID)
	if err != nil {
		return 0, err
	}
	return stats.Progress, nil
}

// IsComplete reports whether every required rule's current sample exists
// and passed. Optional rules never block completion; zero required rules
// means trivially complete.
func (s *CompletionService) IsComplete(commandID uint) (bool, error) {
	required, err := s.rules.ListRequiredByCommand(commandID)
	if err != nil {
		return false, fmt.Errorf("list required rules: %w", err)
	}
	for i := range required {
		sample, err := s.currentSample(commandID, &required[i])
		if err != nil {
			return false, err
		}
		if sample == nil || !sample.Satisfied() {
			return false, nil
		}
	}
	return true, nil
}

// Stats computes the full satisfaction summary in one pass over the
// command's rules.
func (s *CompletionService) Stats(commandID uint) (*CompletionStats, error) {
	rules, err := s.rules.ListByCommand(commandID)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}

	stats := &CompletionStats{TotalRules: len(rules), Progress: 100}
	if len(rules) == 0 {
		return stats, nil
	}

	totalWeight, satisfiedWeight := 0, 0
	for i := range rules {
		rule := &rules[i]
		if rule.Required {
			stats.RequiredRules++
		}
		totalWeight += rule.Weight

		sample, err := s.currentSample(commandID, rule)
		if err != nil {
			return nil, err
		}
		if sample != nil && sample.Satisfied() {
			stats.SatisfiedRules++
			satisfiedWeight += rule.Weight
		} else if rule.TelemetryParam != nil {
			stats.UnsatisfiedParamCodes = append(stats.UnsatisfiedParamCodes, rule.TelemetryParam.ParamCode)
		}
	}

	if totalWeight > 0 {
		// round half-up
		stats.Progress = int(math.Floor(float64(satisfiedWeight)/float64(totalWeight)*100 + 0.5))
	}
	return stats, nil
}

func (s *CompletionService) currentSample(commandID uint, rule *models.JudgmentRule) (*models.TelemetrySample, error) {
	if rule.TelemetryParam == nil {
		return nil, nil
	}
	sample, err := s.samples.LatestByCommandAndParam(commandID, rule.TelemetryParam.ParamCode)
	if err != nil {
		return nil, fmt.Errorf("load current sample: %w", err)
	}
	return sample, nil
}
