package notify

import (
	"time"

	"satguard/app/models"
)

// Topics mirror the push channels observers subscribe to. Every event is
// delivered on its topic channel and, when it carries a command id, on
// that command's channel as well.
const (
	TopicJudgment    = "telemetry-judgment"
	TopicStatus      = "status-change"
	TopicProgress    = "progress"
	TopicCompleted   = "completed"
	TopicFailed      = "failed"
	TopicSystemStats = "system-stats"
)

type Event struct {
	Topic     string `json:"topic"`
	CommandID uint   `json:"commandId,omitempty"`
	Payload   any    `json:"payload"`
}

type JudgmentEvent struct {
	CommandID     uint      `json:"commandId"`
	ParamCode     string    `json:"paramCode"`
	ParamName     string    `json:"paramName"`
	ExpectedValue string    `json:"expectedValue,omitempty"`
	ActualValue   string    `json:"actualValue"`
	Verdict       bool      `json:"verdict"`
	JudgeTime     time.Time `json:"judgeTime"`
}

type StatusChangeEvent struct {
	CommandID  uint                 `json:"commandId"`
	OldStatus  models.CommandStatus `json:"oldStatus"`
	NewStatus  models.CommandStatus `json:"newStatus"`
	Reason     string               `json:"reason"`
	ChangeTime time.Time            `json:"changeTime"`
}

type ProgressEvent struct {
	CommandID             uint      `json:"commandId"`
	TotalRules            int       `json:"totalRules"`
	SatisfiedRules        int       `json:"satisfiedRules"`
	Progress              int       `json:"progressPercent"`
	UnsatisfiedParamCodes []string  `json:"unsatisfiedParamCodes"`
	UpdateTime            time.Time `json:"updateTime"`
}

// TerminalEvent carries the command snapshot on COMPLETED and FAILED.
type TerminalEvent struct {
	CommandID   uint      `json:"commandId"`
	CommandCode string    `json:"commandCode"`
	SatelliteID string    `json:"satelliteId"`
	Content     string    `json:"content"`
	Reason      string    `json:"reason,omitempty"`
	Time        time.Time `json:"time"`
}

type SystemStatsEvent struct {
	Total      int64     `json:"totalCommands"`
	Pending    int64     `json:"pendingCount"`
	Prepared   int64     `json:"preparedCount"`
	Executing  int64     `json:"executingCount"`
	Completed  int64     `json:"completedCount"`
	Failed     int64     `json:"failedCount"`
	UpdateTime time.Time `json:"updateTime"`
}
