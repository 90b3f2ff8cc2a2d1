package analytics

import (
	"fmt"
	"log/slog"

	"github.com/google/cel-go/cel"
)

// Alert is a corridor-level warning derived from fused breach risk.
type Alert struct {
	Corridor  string  `json:"corridor"`
	Severity  string  `json:"severity"`
	AvgBreach float64 `json:"avg_breach"`
	MaxBreach float64 `json:"max_breach"`
	Fused     float64 `json:"fused"`
	Reason    string  `json:"reason"`
}

// AlertRule is a named CEL predicate over corridor statistics, loaded from
// the deployment profile. Available variables: corridor (string), avg_breach,
// max_breach, fused (double), shipments (int).
type AlertRule struct {
	Name       string `yaml:"name" json:"name"`
	Severity   string `yaml:"severity" json:"severity"`
	Expression string `yaml:"expression" json:"expression"`
}

type compiledRule struct {
	rule    AlertRule
	program cel.Program
}

// AlertEngine evaluates the built-in fused threshold plus configured rules
// against corridor health.
type AlertEngine struct {
	threshold float64
	rules     []compiledRule
	logger    *slog.Logger
}

// NewAlertEngine compiles the configured rules. A rule that fails to compile
// rejects the whole configuration; silent rule drops hide operator mistakes.
func NewAlertEngine(threshold float64, rules []AlertRule) (*AlertEngine, error) {
	env, err := cel.NewEnv(
		cel.Variable("corridor", cel.StringType),
		cel.Variable("avg_breach", cel.DoubleType),
		cel.Variable("max_breach", cel.DoubleType),
		cel.Variable("fused", cel.DoubleType),
		cel.Variable("shipments", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("build alert rule environment: %w", err)
	}

	engine := &AlertEngine{
		threshold: threshold,
		logger:    slog.Default().With("component", "alerts"),
	}
	for _, rule := range rules {
		ast, issues := env.Compile(rule.Expression)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("compile alert rule %q: %w", rule.Name, issues.Err())
		}
		program, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("build alert rule %q: %w", rule.Name, err)
		}
		engine.rules = append(engine.rules, compiledRule{rule: rule, program: program})
	}
	return engine, nil
}

// Evaluate returns alerts for every corridor whose fused breach meets the
// threshold, plus one alert per matching configured rule.
func (e *AlertEngine) Evaluate(health []CorridorHealth) []Alert {
	var alerts []Alert
	for _, h := range health {
		if h.Fused >= e.threshold {
			alerts = append(alerts, Alert{
				Corridor:  h.Corridor,
				Severity:  severityForLevel(h.Level),
				AvgBreach: h.AvgBreach,
				MaxBreach: h.MaxBreach,
				Fused:     h.Fused,
				Reason:    fmt.Sprintf("fused breach %.2f >= threshold %.2f", h.Fused, e.threshold),
			})
		}

		vars := map[string]any{
			"corridor":   h.Corridor,
			"avg_breach": h.AvgBreach,
			"max_breach": h.MaxBreach,
			"fused":      h.Fused,
			"shipments":  h.ShipmentCount,
		}
		for _, cr := range e.rules {
			out, _, err := cr.program.Eval(vars)
			if err != nil {
				e.logger.Warn("alert rule evaluation failed",
					"rule", cr.rule.Name, "corridor", h.Corridor, "error", err)
				continue
			}
			matched, ok := out.Value().(bool)
			if !ok || !matched {
				continue
			}
			alerts = append(alerts, Alert{
				Corridor:  h.Corridor,
				Severity:  cr.rule.Severity,
				AvgBreach: h.AvgBreach,
				MaxBreach: h.MaxBreach,
				Fused:     h.Fused,
				Reason:    fmt.Sprintf("rule %q matched", cr.rule.Name),
			})
		}
	}
	return alerts
}

func severityForLevel(level CorridorLevel) string {
	switch level {
	case CorridorHigh:
		return "URGENT"
	case CorridorMedium:
		return "WARNING"
	default:
		return "INFO"
	}
}
