package models

import "time"

type ParamType string

const (
	ParamNumber  ParamType = "NUMBER"
	ParamString  ParamType = "STRING"
	ParamBoolean ParamType = "BOOLEAN"
)

// TelemetryParam is a named, typed measurable quantity reported by a
// satellite. FormulaExpression is descriptive metadata; the judgment
// path only looks at ParamType.
type TelemetryParam struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	ParamName          string    `gorm:"size:100;not null" json:"paramName"`
	ParamCode          string    `gorm:"size:50;uniqueIndex;not null" json:"paramCode"`
	Description        string    `gorm:"size:200" json:"description,omitempty"`
	Unit               string    `gorm:"size:20" json:"unit,omitempty"`
	ParamType          ParamType `gorm:"size:20" json:"paramType"`
	Enabled            bool      `gorm:"not null;default:true" json:"enabled"`
	SupportFormula     bool      `gorm:"not null;default:false" json:"supportFormula"`
	FormulaExpression  string    `gorm:"size:1000" json:"formulaExpression,omitempty"`
	FormulaDescription string    `gorm:"size:200" json:"formulaDescription,omitempty"`
	CreateTime         time.Time `gorm:"autoCreateTime" json:"createTime"`
	UpdateTime         time.Time `gorm:"autoUpdateTime" json:"updateTime"`
}

func NewTelemetryParam(name, code string) *TelemetryParam {
	return &TelemetryParam{ParamName: name, ParamCode: code, ParamType: ParamNumber, Enabled: true}
}
