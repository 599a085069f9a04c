package models

import (
	"fmt"
	"time"
)

type JudgeOperator string

const (
	OpEquals         JudgeOperator = "=="
	OpNotEquals      JudgeOperator = "!="
	OpGreaterThan    JudgeOperator = ">"
	OpLessThan       JudgeOperator = "<"
	OpGreaterOrEqual JudgeOperator = ">="
	OpLessOrEqual    JudgeOperator = "<="
)

func ParseOperator(symbol string) (JudgeOperator, error) {
	switch JudgeOperator(symbol) {
	case OpEquals, OpNotEquals, OpGreaterThan, OpLessThan, OpGreaterOrEqual, OpLessOrEqual:
		return JudgeOperator(symbol), nil
	}
	return "", fmt.Errorf("unknown operator symbol: %q", symbol)
}

type RuleType string

const (
	RuleSimple  RuleType = "SIMPLE"
	RuleFormula RuleType = "FORMULA"
)

// JudgmentRule binds a command to a telemetry parameter together with the
// condition that must hold: a SIMPLE operator comparison against an
// expected value, or a FORMULA expression evaluated over the command's
// telemetry context.
type JudgmentRule struct {
	ID               uint          `gorm:"primaryKey" json:"id"`
	CommandID        uint          `gorm:"index;not null" json:"commandId"`
	TelemetryParamID uint          `gorm:"index;not null" json:"telemetryParamId"`
	Operator         JudgeOperator `gorm:"size:10" json:"operator"`
	ExpectedValue    string        `gorm:"size:100" json:"expectedValue"`
	RuleType         RuleType      `gorm:"size:20;not null" json:"ruleType"`
	Expression       string        `gorm:"size:1000" json:"expression,omitempty"`
	Required         bool          `gorm:"not null;default:true" json:"required"`
	Weight           int           `gorm:"not null;default:1" json:"weight"`
	CreateTime       time.Time     `gorm:"not null" json:"createTime"`
	UpdateTime       time.Time     `gorm:"autoUpdateTime" json:"updateTime"`

	TelemetryParam *TelemetryParam `gorm:"foreignKey:TelemetryParamID" json:"-"`
}

func NewJudgmentRule(commandID, paramID uint, op JudgeOperator, expected string) *JudgmentRule {
	return &JudgmentRule{
		CommandID:        commandID,
		TelemetryParamID: paramID,
		Operator:         op,
		ExpectedValue:    expected,
		RuleType:         RuleSimple,
		Required:         true,
		Weight:           1,
		CreateTime:       time.Now(),
	}
}

func NewFormulaRule(commandID, paramID uint, expression string) *JudgmentRule {
	return &JudgmentRule{
		CommandID:        commandID,
		TelemetryParamID: paramID,
		RuleType:         RuleFormula,
		Expression:       expression,
		Required:         true,
		Weight:           1,
		CreateTime:       time.Now(),
	}
}

// Validate enforces the structural invariants of a rule binding.
func (r *JudgmentRule) Validate() error {
	if r.Weight < 0 {
		return fmt.Errorf("rule weight must be >= 0, got %d", r.Weight)
	}
	switch r.RuleType {
	case RuleSimple:
		if _, err := ParseOperator(string(r.Operator)); err != nil {
			return err
		}
	case RuleFormula:
		if r.Expression == "" {
			return fmt.Errorf("formula rule requires a non-empty expression")
		}
	default:
		return fmt.Errorf("unknown rule type: %q", r.RuleType)
	}
	return nil
}
