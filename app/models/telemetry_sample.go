package models

import "time"

const SourceBus = "BUS"

// TelemetrySample is one judged observation of a parameter for a command.
// Samples are append-only: a newer sample supersedes an older one for the
// same (command, parameter) pair by receive time, never by overwrite.
type TelemetrySample struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	CommandID   uint       `gorm:"index:idx_sample_cmd_param;not null" json:"commandId"`
	ParamCode   string     `gorm:"size:50;index:idx_sample_cmd_param;not null" json:"paramCode"`
	ActualValue string     `gorm:"size:100;not null" json:"actualValue"`
	ReceiveTime time.Time  `gorm:"index;not null" json:"receiveTime"`
	Verdict     *bool      `json:"verdict"`
	JudgeTime   *time.Time `json:"judgeTime,omitempty"`
	Source      string     `gorm:"size:20" json:"source"`
	RawMessage  string     `gorm:"size:1000" json:"rawMessage,omitempty"`
}

func NewTelemetrySample(commandID uint, paramCode, actualValue string) *TelemetrySample {
	return &TelemetrySample{
		CommandID:   commandID,
		ParamCode:   paramCode,
		ActualValue: actualValue,
		ReceiveTime: time.Now(),
		Source:      SourceBus,
	}
}

// SetVerdict records the judgment outcome and stamps the judge time.
func (s *TelemetrySample) SetVerdict(v bool) {
	now := time.Now()
	s.Verdict = &v
	s.JudgeTime = &now
}

// Satisfied reports whether the sample has been judged and passed.
func (s *TelemetrySample) Satisfied() bool {
	return s.Verdict != nil && *s.Verdict
}
