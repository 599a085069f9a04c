package repo

import (
	"errors"
	"time"

	"satguard/app/models"

	"gorm.io/gorm"
)

type SampleRepository struct {
	db *gorm.DB
}

func NewSampleRepository(db *gorm.DB) *SampleRepository {
	return &SampleRepository{db: db}
}

func (r *SampleRepository) Insert(s *models.TelemetrySample) error {
	return r.db.Create(s).Error
}

// LatestByCommandAndParam returns the current value of a parameter for a
// command: latest receive time, ties broken by insertion order (highest
// id wins). Returns (nil, nil) when no sample exists yet.
func (r *SampleRepository) LatestByCommandAndParam(commandID uint, paramCode string) (*models.TelemetrySample, error) {
	var s models.TelemetrySample
	err := r.db.Where("command_id = ? AND param_code = ?", commandID, paramCode).
		Order("receive_time DESC, id DESC").
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SampleRepository) ListByCommand(commandID uint) ([]models.TelemetrySample, error) {
	var samples []models.TelemetrySample
	err := r.db.Where("command_id = ?", commandID).
		Order("receive_time DESC, id DESC").
		Find(&samples).Error
	return samples, err
}

// CurrentValues returns the latest actual value per parameter observed
// for a command, used to build formula evaluation contexts.
func (r *SampleRepository) CurrentValues(commandID uint) (map[string]string, error) {
	samples, err := r.ListByCommand(commandID)
	if err != nil {
		return nil, err
	}
	values := make(map[string]string)
	// list is newest-first; first occurrence per code is the current value
	for _, s := range samples {
		if _, seen := values[s.ParamCode]; !seen {
			values[s.ParamCode] = s.ActualValue
		}
	}
	return values, nil
}

// DeleteReceivedBefore removes samples older than the cutoff. Used by the
// daily retention sweep.
func (r *SampleRepository) DeleteReceivedBefore(cutoff time.Time) (int64, error) {
	res := r.db.Where("receive_time < ?", cutoff).Delete(&models.TelemetrySample{})
	return res.RowsAffected, res.Error
}
