package repo

import (
	"errors"

	"satguard/app/models"

	"gorm.io/gorm"
)

var ErrParamNotFound = errors.New("telemetry param not found")

type ParamRepository struct {
	db *gorm.DB
}

func NewParamRepository(db *gorm.DB) *ParamRepository {
	return &ParamRepository{db: db}
}

func (r *ParamRepository) Create(p *models.TelemetryParam) error {
	return r.db.Create(p).Error
}

func (r *ParamRepository) FindByID(id uint) (*models.TelemetryParam, error) {
	var p models.TelemetryParam
	err := r.db.First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrParamNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ParamRepository) FindByCode(code string) (*models.TelemetryParam, error) {
	var p models.TelemetryParam
	err := r.db.Where("param_code = ?", code).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrParamNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ParamRepository) ListEnabled() ([]models.TelemetryParam, error) {
	var params []models.TelemetryParam
	err := r.db.Where("enabled = ?", true).Order("param_code ASC").Find(&params).Error
	return params, err
}
