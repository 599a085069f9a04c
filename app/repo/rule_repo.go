package repo

import (
	"errors"

	"satguard/app/models"

	"gorm.io/gorm"
)

type RuleRepository struct {
	db *gorm.DB
}

func NewRuleRepository(db *gorm.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

func (r *RuleRepository) Create(rule *models.JudgmentRule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	return r.db.Create(rule).Error
}

// ListByCommand returns all rule bindings for a command with their
// parameters preloaded, heaviest weight first.
func (r *RuleRepository) ListByCommand(commandID uint) ([]models.JudgmentRule, error) {
	var rules []models.JudgmentRule
	err := r.db.Preload("TelemetryParam").
		Where("command_id = ?", commandID).
		Order("weight DESC, id ASC").
		Find(&rules).Error
	return rules, err
}

func (r *RuleRepository) ListRequiredByCommand(commandID uint) ([]models.JudgmentRule, error) {
	var rules []models.JudgmentRule
	err := r.db.Preload("TelemetryParam").
		Where("command_id = ? AND required = ?", commandID, true).
		Order("weight DESC").
		Find(&rules).Error
	return rules, err
}

// FindByCommandAndParamCode resolves the rule bound to one (command,
// parameter) pair. When duplicate bindings exist the most recently
// created rule wins. Returns (nil, nil) when the parameter is unbound.
func (r *RuleRepository) FindByCommandAndParamCode(commandID uint, paramCode string) (*models.JudgmentRule, error) {
	var rule models.JudgmentRule
	err := r.db.Preload("TelemetryParam").
		Joins("JOIN telemetry_params ON telemetry_params.id = judgment_rules.telemetry_param_id").
		Where("judgment_rules.command_id = ? AND telemetry_params.param_code = ?", commandID, paramCode).
		Order("judgment_rules.create_time DESC, judgment_rules.id DESC").
		First(&rule).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *RuleRepository) CountByCommand(commandID uint) (int64, error) {
	var n int64
	err := r.db.Model(&models.JudgmentRule{}).Where("command_id = ?", commandID).Count(&n).Error
	return n, err
}

func (r *RuleRepository) DeleteByCommand(commandID uint) error {
	return r.db.Where("command_id = ?", commandID).Delete(&models.JudgmentRule{}).Error
}
