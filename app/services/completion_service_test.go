package services

import (
	"testing"
	"time"

	"satguard/app/models"
)

func TestCompletionNoRulesTriviallySatisfied(t *testing.T) {
	env := newTestEnv(t)
	cmd := env.createCommand(t, "CMD-COMP-1", models.StatusExecuting)

	progress, err := env.completion.Progress(cmd.ID)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if progress != 100 {
		t.Errorf("progress = %d, want 100", progress)
	}
	complete, err := env.completion.IsComplete(cmd.ID)
	if err != nil {
		t.Fatalf("is complete: %v", err)
	}
	if !complete {
		t.Error("command with no rules must be trivially complete")
	}
}

func TestCompletionZeroTotalWeight(t *testing.T) {
	env := newTestEnv(t)
	cmd := env.createCommand(t, "CMD-COMP-2", models.StatusExecuting)
	temp := env.createParam(t, "temperature", "TEMP_001", models.ParamNumber)
	rule := models.NewJudgmentRule(cmd.ID, temp.ID, models.OpGreaterThan, "80")
	rule.Weight = 0
	env.createRule(t, rule)

	progress, err := env.completion.Progress(cmd.ID)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if progress != 100 {
		t.Errorf("zero total weight: progress = %d, want 100", progress)
	}
}

func TestCompletionWeightedProgress(t *testing.T) {
	// one required weight-2 rule unsatisfied, one optional weight-1
	// rule satisfied: progress = round(100*1/3) = 33, not complete
	env := newTestEnv(t)
	cmd := env.createCommand(t, "CMD-COMP-3", models.StatusExecuting)
	temp := env.createParam(t, "temperature", "TEMP_001", models.ParamNumber)
	press := env.createParam(t, "pressure", "PRESS_001", models.ParamNumber)

	required := models.NewJudgmentRule(cmd.ID, temp.ID, models.OpGreaterThan, "80")
	required.Weight = 2
	env.createRule(t, required)

	optional := models.NewJudgmentRule(cmd.ID, press.ID, models.OpLessThan, "1000000")
	optional.Required = false
	env.createRule(t, optional)

	if _, _, err := env.judge.Judge(cmd.ID, "PRESS_001", "900000", "", time.Now()); err != nil {
		t.Fatalf("judge: %v", err)
	}

	stats, err := env.completion.Stats(cmd.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Progress != 33 {
		t.Errorf("progress = %d, want 33", stats.Progress)
	}
	if stats.SatisfiedRules != 1 || stats.TotalRules != 2 {
		t.Errorf("satisfied/total = %d/%d, want 1/2", stats.SatisfiedRules, stats.TotalRules)
	}
	if len(stats.UnsatisfiedParamCodes) != 1 || stats.UnsatisfiedParamCodes[0] != "TEMP_001" {
		t.Errorf("unsatisfied = %v, want [TEMP_001]", stats.UnsatisfiedParamCodes)
	}

	complete, err := env.completion.IsComplete(cmd.ID)
	if err != nil {
		t.Fatalf("is complete: %v", err)
	}
	if complete {
		t.Error("required rule unmet, command must not be complete")
	}
}

func TestCompletionOnlyOptionalRules(t *testing.T) {
	env := newTestEnv(t)
	cmd := env.createCommand(t, "CMD-COMP-4", models.StatusExecuting)
	temp := env.createParam(t, "temperature", "TEMP_001", models.ParamNumber)
	optional := models.NewJudgmentRule(cmd.ID, temp.ID, models.OpGreaterThan, "80")
	optional.Required = false
	env.createRule(t, optional)

	// zero required rules: complete even with no data, but progress
	// still tracks the optional weight
	complete, err := env.completion.IsComplete(cmd.ID)
	if err != nil {
		t.Fatalf("is complete: %v", err)
	}
	if !complete {
		t.Error("zero required rules means trivially complete")
	}
	progress, err := env.completion.Progress(cmd.ID)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if progress != 0 {
		t.Errorf("progress = %d, want 0 with no samples", progress)
	}
}

func TestCompletionProgressMonotonicAsVerdictsFlip(t *testing.T) {
	env := newTestEnv(t)
	cmd := env.createCommand(t, "CMD-COMP-5", models.StatusExecuting)
	temp := env.createParam(t, "temperature", "TEMP_001", models.ParamNumber)
	press := env.createParam(t, "pressure", "PRESS_001", models.ParamNumber)
	env.createRule(t, models.NewJudgmentRule(cmd.ID, temp.ID, models.OpGreaterThan, "80"))
	env.createRule(t, models.NewJudgmentRule(cmd.ID, press.ID, models.OpLessThan, "1000000"))

	last := -1
	steps := []struct {
		param, value string
	}{
		{"TEMP_001", "50"},   // false
		{"TEMP_001", "85"},   // flips true
		{"PRESS_001", "900"}, // true
	}
	base := time.Now()
	for i, step := range steps {
		if _, _, err := env.judge.Judge(cmd.ID, step.param, step.value, "", base.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("judge step %d: %v", i, err)
		}
		progress, err := env.completion.Progress(cmd.ID)
		if err != nil {
			t.Fatalf("progress step %d: %v", i, err)
		}
		if progress < last {
			t.Errorf("progress decreased: %d -> %d at step %d", last, progress, i)
		}
		last = progress
	}
	if last != 100 {
		t.Errorf("final progress = %d, want 100", last)
	}
}

func TestCompletionScenarioBothRequiredSatisfied(t *testing.T) {
	env := newTestEnv(t)
	cmd := env.createCommand(t, "CMD-COMP-6", models.StatusExecuting)
	temp := env.createParam(t, "temperature", "TEMP_001", models.ParamNumber)
	press := env.createParam(t, "pressure", "PRESS_001", models.ParamNumber)
	env.createRule(t, models.NewJudgmentRule(cmd.ID, temp.ID, models.OpGreaterThan, "80"))
	env.createRule(t, models.NewJudgmentRule(cmd.ID, press.ID, models.OpLessThan, "1000000"))

	base := time.Now()
	if _, _, err := env.judge.Judge(cmd.ID, "TEMP_001", "85", "", base); err != nil {
		t.Fatalf("judge: %v", err)
	}
	if _, _, err := env.judge.Judge(cmd.ID, "PRESS_001", "900000", "", base.Add(time.Second)); err != nil {
		t.Fatalf("judge: %v", err)
	}

	progress, err := env.completion.Progress(cmd.ID)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if progress != 100 {
		t.Errorf("progress = %d, want 100", progress)
	}
	complete, err := env.completion.IsComplete(cmd.ID)
	if err != nil {
		t.Fatalf("is complete: %v", err)
	}
	if !complete {
		t.Error("both required rules satisfied, command must be complete")
	}
}
