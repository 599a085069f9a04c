package repo

import (
	"errors"
	"time"

	"satguard/app/models"

	"gorm.io/gorm"
)

var ErrCommandNotFound = errors.New("command not found")

type CommandRepository struct {
	db *gorm.DB
}

func NewCommandRepository(db *gorm.DB) *CommandRepository {
	return &CommandRepository{db: db}
}

func (r *CommandRepository) Create(cmd *models.Command) error {
	return r.db.Create(cmd).Error
}

func (r *CommandRepository) Save(cmd *models.Command) error {
	return r.db.Save(cmd).Error
}

func (r *CommandRepository) FindByID(id uint) (*models.Command, error) {
	var cmd models.Command
	err := r.db.First(&cmd, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCommandNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cmd, nil
}

func (r *CommandRepository) FindByCode(commandCode string) (*models.Command, error) {
	var cmd models.Command
	err := r.db.Where("command_code = ?", commandCode).First(&cmd).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCommandNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cmd, nil
}

// UpdateStatus commits a transition guarded by the expected current
// status. Returns gorm.ErrRecordNotFound-free semantics: a zero row
// count means a concurrent transition won the race.
func (r *CommandRepository) UpdateStatus(id uint, from, to models.CommandStatus) (bool, error) {
	res := r.db.Model(&models.Command{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *CommandRepository) ListByStatus(status models.CommandStatus) ([]models.Command, error) {
	var cmds []models.Command
	err := r.db.Where("status = ?", status).Order("create_time DESC").Find(&cmds).Error
	return cmds, err
}

func (r *CommandRepository) ListBySatellite(satelliteID string) ([]models.Command, error) {
	var cmds []models.Command
	err := r.db.Where("satellite_id = ?", satelliteID).Order("create_time DESC").Find(&cmds).Error
	return cmds, err
}

// ListPendingAndPrepared feeds the resynchronization sweep.
func (r *CommandRepository) ListPendingAndPrepared() ([]models.Command, error) {
	var cmds []models.Command
	err := r.db.Where("status IN ?", []models.CommandStatus{models.StatusPending, models.StatusPrepared}).
		Order("create_time DESC").Find(&cmds).Error
	return cmds, err
}

// ListExpiredExecuting returns EXECUTING commands whose expire time has
// passed, for the timeout sweep.
func (r *CommandRepository) ListExpiredExecuting(now time.Time) ([]models.Command, error) {
	var cmds []models.Command
	err := r.db.Where("status = ? AND expire_time < ?", models.StatusExecuting, now).Find(&cmds).Error
	return cmds, err
}

func (r *CommandRepository) CountByStatus(status models.CommandStatus) (int64, error) {
	var n int64
	err := r.db.Model(&models.Command{}).Where("status = ?", status).Count(&n).Error
	return n, err
}

func (r *CommandRepository) CountAll() (int64, error) {
	var n int64
	err := r.db.Model(&models.Command{}).Count(&n).Error
	return n, err
}
