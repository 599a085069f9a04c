package services

import (
	"path/filepath"
	"testing"
	"time"

	"satguard/app/models"
	"satguard/app/notify"
	"satguard/app/repo"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type testEnv struct {
	db         *gorm.DB
	commands   *repo.CommandRepository
	rules      *repo.RuleRepository
	params     *repo.ParamRepository
	samples    *repo.SampleRepository
	hub        *notify.Hub
	formula    *FormulaService
	judge      *JudgeService
	completion *CompletionService
	command    *CommandService
	ingest     *IngestService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "satguard.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := gdb.AutoMigrate(&models.Command{}, &models.TelemetryParam{}, &models.JudgmentRule{}, &models.TelemetrySample{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	log := zerolog.Nop()
	env := &testEnv{
		db:       gdb,
		commands: repo.NewCommandRepository(gdb),
		rules:    repo.NewRuleRepository(gdb),
		params:   repo.NewParamRepository(gdb),
		samples:  repo.NewSampleRepository(gdb),
		hub:      notify.NewHub(64, nil, log),
		formula:  NewFormulaService(log),
	}
	t.Cleanup(env.hub.Close)
	env.judge = NewJudgeService(env.rules, env.params, env.samples, env.formula, log)
	env.completion = NewCompletionService(env.rules, env.samples)
	env.command = NewCommandService(env.commands, env.hub, nil, log)
	env.ingest = NewIngestService(env.command, env.judge, env.completion, env.hub, nil, "satellite-telemetry", log)
	return env
}

func (e *testEnv) createCommand(t *testing.T, code string, status models.CommandStatus) *models.Command {
	t.Helper()
	cmd := models.NewCommand("start engine", time.Now().Add(-time.Minute), "SAT-001")
	cmd.CommandCode = code
	if err := e.command.CreateCommand(cmd); err != nil {
		t.Fatalf("create command: %v", err)
	}
	if status != models.StatusPending {
		cmd.Status = status
		if err := e.commands.Save(cmd); err != nil {
			t.Fatalf("set status: %v", err)
		}
	}
	return cmd
}

func (e *testEnv) createParam(t *testing.T, name, code string, pt models.ParamType) *models.TelemetryParam {
	t.Helper()
	p := models.NewTelemetryParam(name, code)
	p.ParamType = pt
	if err := e.params.Create(p); err != nil {
		t.Fatalf("create param: %v", err)
	}
	return p
}

func (e *testEnv) createRule(t *testing.T, rule *models.JudgmentRule) *models.JudgmentRule {
	t.Helper()
	if err := e.rules.Create(rule); err != nil {
		t.Fatalf("create rule: %v", err)
	}
	return rule
}

func waitEvent(t *testing.T, ch <-chan notify.Event) notify.Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return notify.Event{}
	}
}
