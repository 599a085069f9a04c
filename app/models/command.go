package models

import "time"

type CommandStatus string

const (
	StatusPending   CommandStatus = "PENDING"
	StatusPrepared  CommandStatus = "PREPARED"
	StatusExecuting CommandStatus = "EXECUTING"
	StatusCompleted CommandStatus = "COMPLETED"
	StatusFailed    CommandStatus = "FAILED"
)

// Terminal reports whether no further transitions are permitted.
func (s CommandStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

func (s CommandStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPrepared, StatusExecuting, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Command is a directive sent to a satellite, tracked from issuance
// through telemetry-confirmed completion.
type Command struct {
	ID              uint          `gorm:"primaryKey" json:"id"`
	Content         string        `gorm:"size:500;not null" json:"content"`
	SatelliteID     string        `gorm:"size:50;index;not null" json:"satelliteId"`
	CommandCode     string        `gorm:"size:50;uniqueIndex" json:"commandCode"` // correlation code for inbound telemetry
	Status          CommandStatus `gorm:"size:20;index;not null" json:"status"`
	ExecuteTime     time.Time     `gorm:"not null" json:"executeTime"`
	CreateTime      time.Time     `gorm:"not null" json:"createTime"`
	ExpireTime      time.Time     `gorm:"index;not null" json:"expireTime"`
	TimeoutDuration int           `gorm:"not null" json:"timeoutDuration"` // minutes
	Remark          string        `gorm:"size:200" json:"remark,omitempty"`
}

const DefaultTimeoutMinutes = 30

func NewCommand(content string, executeTime time.Time, satelliteID string) *Command {
	c := &Command{
		Content:         content,
		SatelliteID:     satelliteID,
		Status:          StatusPending,
		CreateTime:      time.Now(),
		TimeoutDuration: DefaultTimeoutMinutes,
	}
	c.SetExecuteTime(executeTime)
	return c
}

// SetExecuteTime updates the execution time and recomputes ExpireTime.
func (c *Command) SetExecuteTime(t time.Time) {
	c.ExecuteTime = t
	c.ExpireTime = t.Add(time.Duration(c.TimeoutDuration) * time.Minute)
}

// SetTimeoutDuration updates the timeout (minutes) and recomputes ExpireTime.
func (c *Command) SetTimeoutDuration(minutes int) {
	c.TimeoutDuration = minutes
	if !c.ExecuteTime.IsZero() {
		c.ExpireTime = c.ExecuteTime.Add(time.Duration(minutes) * time.Minute)
	}
}

func (c *Command) Expired(now time.Time) bool {
	return now.After(c.ExpireTime)
}

func (c *Command) ReadyToExecute(now time.Time) bool {
	return now.After(c.ExecuteTime) && c.Status == StatusPending
}
