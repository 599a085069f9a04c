package services

import (
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/rs/zerolog"
)

// FormulaService compiles and executes judgment formulas. Compiled
// programs are cached per expression; any compile or runtime failure is
// logged and collapses to a false verdict, never an error to the caller.
type FormulaService struct {
	log zerolog.Logger

	mu    sync.RWMutex
	cache map[string]*vm.Program
}

func NewFormulaService(log zerolog.Logger) *FormulaService {
	return &FormulaService{log: log, cache: make(map[string]*vm.Program)}
}

func (s *FormulaService) Compile(expression string) (*vm.Program, error) {
	s.mu.RLock()
	p, ok := s.cache[expression]
	s.mu.RUnlock()
	if ok {
		return p, nil
	}
	p, err := expr.Compile(expression, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.cache[expression] = p
	s.mu.Unlock()
	return p, nil
}

// Validate reports whether an expression compiles.
func (s *FormulaService) Validate(expression string) error {
	_, err := s.Compile(expression)
	return err
}

// EvaluateBool runs an expression over the telemetry context and coerces
// the result to a verdict.
func (s *FormulaService) EvaluateBool(expression string, env map[string]any) bool {
	p, err := s.Compile(expression)
	if err != nil {
		s.log.Warn().Err(err).Str("expression", expression).Msg("formula failed to compile")
		return false
	}
	out, err := expr.Run(p, env)
	if err != nil {
		s.log.Warn().Err(err).Str("expression", expression).Msg("formula failed at runtime")
		return false
	}
	return CoerceBool(out)
}

// CoerceBool turns an evaluator result into a verdict: boolean
// passthrough, nonzero number, or a string boolean literal. Everything
// else is false.
func CoerceBool(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case float64:
		return x != 0
	case float32:
		return x != 0
	case int:
		return x != 0
	case int64:
		return x != 0
	case uint:
		return x != 0
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		return err == nil && b
	}
	return false
}

// BuildContext binds telemetry values into an evaluation environment.
// Values that parse as decimal numbers are bound numerically, the rest
// as text. The fixed function library rides along on every context.
func BuildContext(values map[string]string) map[string]any {
	env := make(map[string]any, len(values)+16)
	for code, raw := range values {
		if n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
			env[code] = n
		} else {
			env[code] = raw
		}
	}
	addFunctions(env)
	return env
}

func addFunctions(env map[string]any) {
	env["abs"] = math.Abs
	env["min"] = math.Min
	env["max"] = math.Max
	env["sqrt"] = math.Sqrt
	env["pow"] = math.Pow
	env["sin"] = math.Sin
	env["cos"] = math.Cos
	env["tan"] = math.Tan
	env["log"] = math.Log
	env["log10"] = math.Log10
	env["now"] = func() float64 { return float64(time.Now().UnixMilli()) }
	env["length"] = func(s string) int { return len(s) }
	env["upper"] = strings.ToUpper
	env["lower"] = strings.ToLower
}
