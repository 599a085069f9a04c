package services

import (
	"fmt"
	"time"

	"satguard/app/models"
	"satguard/app/repo"

	"github.com/rs/zerolog"
)

// JudgeService evaluates one telemetry sample against the rule bound to
// its (command, parameter) pair and persists the verdict.
type JudgeService struct {
	rules    *repo.RuleRepository
	params   *repo.ParamRepository
	samples  *repo.SampleRepository
	formulas *FormulaService
	log      zerolog.Logger
}

func NewJudgeService(rules *repo.RuleRepository, params *repo.ParamRepository, samples *repo.SampleRepository, formulas *FormulaService, log zerolog.Logger) *JudgeService {
	return &JudgeService{rules: rules, params: params, samples: samples, formulas: formulas, log: log}
}

// Judge resolves the bound rule, evaluates the sample and persists it
// with the verdict. judged is false when no rule binds the parameter to
// the command; the sample is then dropped without persistence, since
// unbound telemetry is a normal condition. A persistence failure
// is returned as a hard error: the sample counts as not yet processed.
func (s *JudgeService) Judge(commandID uint, paramCode, actualValue, rawMessage string, receivedAt time.Time) (verdict bool, judged bool, err error) {
	rule, err := s.rules.FindByCommandAndParamCode(commandID, paramCode)
	if err != nil {
		return false, false, fmt.Errorf("resolve rule: %w", err)
	}
	if rule == nil {
		s.log.Debug().Uint("command", commandID).Str("param", paramCode).Msg("no rule bound, sample dropped")
		return false, false, nil
	}

	// Context: the incoming value plus the current value of every other
	// parameter historically observed for this command.
	values, err := s.samples.CurrentValues(commandID)
	if err != nil {
		return false, false, fmt.Errorf("load telemetry context: %w", err)
	}
	values[paramCode] = actualValue

	switch rule.RuleType {
	case models.RuleFormula:
		verdict = s.formulas.EvaluateBool(rule.Expression, BuildContext(values))
	default:
		verdict = s.judgeSimple(rule, actualValue)
	}

	sample := models.NewTelemetrySample(commandID, paramCode, actualValue)
	if !receivedAt.IsZero() {
		sample.ReceiveTime = receivedAt
	}
	sample.RawMessage = rawMessage
	sample.SetVerdict(verdict)
	if err := s.samples.Insert(sample); err != nil {
		return false, false, fmt.Errorf("persist sample: %w", err)
	}

	s.log.Info().
		Uint("command", commandID).
		Str("param", paramCode).
		Str("actual", actualValue).
		Str("ruleType", string(rule.RuleType)).
		Bool("verdict", verdict).
		Msg("telemetry judged")
	return verdict, true, nil
}

func (s *JudgeService) judgeSimple(rule *models.JudgmentRule, actualValue string) bool {
	param := rule.TelemetryParam
	if param == nil {
		p, err := s.params.FindByID(rule.TelemetryParamID)
		if err != nil {
			s.log.Error().Err(err).Uint("rule", rule.ID).Msg("rule references missing param")
			return false
		}
		param = p
	}

	actual, err := CoerceValue(actualValue, param.ParamType)
	if err != nil {
		s.log.Warn().Err(err).Str("param", param.ParamCode).Msg("actual value coercion failed")
		return false
	}
	expected, err := CoerceValue(rule.ExpectedValue, param.ParamType)
	if err != nil {
		s.log.Warn().Err(err).Str("param", param.ParamCode).Msg("expected value coercion failed")
		return false
	}
	ok, err := Compare(actual, expected, rule.Operator)
	if err != nil {
		s.log.Warn().Err(err).Str("param", param.ParamCode).Msg("comparison failed")
		return false
	}
	return ok
}
