package engine

import (
	"fmt"
	"regexp"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Rule validates a record before it is written.
//
// Field rules check one field with an operator: min, max, min_length,
// max_length or pattern. Expression rules evaluate an expr-lang boolean over
// record, old and action; the rule is violated when the expression is true.
type Rule struct {
	Type       string `json:"type"` // field or expression
	Field      string `json:"field,omitempty"`
	Operator   string `json:"operator,omitempty"`
	Value      any    `json:"value,omitempty"`
	Expression string `json:"expression,omitempty"`
	Message    string `json:"message,omitempty"`
	StopOnFail bool   `json:"stop_on_fail,omitempty"`
}

// RuleSet is a compiled, immutable list of rules.
type RuleSet struct {
	rules    []Rule
	programs []*vm.Program
}

// NewRuleSet compiles every expression and pattern up front.
func NewRuleSet(rules ...Rule) (*RuleSet, error) {
	rs := &RuleSet{rules: rules, programs: make([]*vm.Program, len(rules))}
	for i, r := range rules {
		switch r.Type {
		case "field":
			if r.Field == "" {
				return nil, fmt.Errorf("rule %d: field rule without a field", i)
			}
			if r.Operator == "pattern" {
				pattern, ok := r.Value.(string)
				if !ok {
					return nil, fmt.Errorf("rule %d: pattern must be a string", i)
				}
				if _, err := regexp.Compile(pattern); err != nil {
					return nil, fmt.Errorf("rule %d: %w", i, err)
				}
			}
		case "expression":
			prog, err := CompileExpression(r.Expression)
			if err != nil {
				return nil, fmt.Errorf("rule %d: %w", i, err)
			}
			rs.programs[i] = prog
		default:
			return nil, fmt.Errorf("rule %d: unknown rule type %q", i, r.Type)
		}
	}
	return rs, nil
}

// Len returns the number of rules; a nil set has none.
func (rs *RuleSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.rules)
}

// Evaluate runs field rules first, then expression rules, and returns the
// violations. old is nil on create.
func (rs *RuleSet) Evaluate(record, old map[string]any, action string) []ErrorDetail {
	if rs.Len() == 0 {
		return nil
	}

	env := map[string]any{
		"record": record,
		"old":    old,
		"action": action,
	}

	var errs []ErrorDetail

	// 1. Field rules
	for _, r := range rs.rules {
		if r.Type != "field" {
			continue
		}
		if detail := EvaluateFieldRule(r, record); detail != nil {
			errs = append(errs, *detail)
			if r.StopOnFail {
				return errs
			}
		}
	}

	// 2. Expression rules
	for i, r := range rs.rules {
		if r.Type != "expression" {
			continue
		}
		if detail := EvaluateExpressionRule(r, rs.programs[i], env); detail != nil {
			errs = append(errs, *detail)
			if r.StopOnFail {
				return errs
			}
		}
	}

	return errs
}

// EvaluateFieldRule evaluates a single field rule against a record.
// Returns nil if the rule passes, or an ErrorDetail if it fails.
func EvaluateFieldRule(rule Rule, record map[string]any) *ErrorDetail {
	fieldName := rule.Field
	val, exists := record[fieldName]
	if !exists || val == nil {
		return nil // absent fields are not checked by field rules
	}

	op := rule.Operator
	msg := rule.Message
	if msg == "" {
		msg = fmt.Sprintf("field %s failed %s validation", fieldName, op)
	}

	switch op {
	case "min":
		num, ok := toFloat64(val)
		if !ok {
			return nil
		}
		threshold, ok := toFloat64(rule.Value)
		if !ok {
			return nil
		}
		if num < threshold {
			return &ErrorDetail{Field: fieldName, Rule: "min", Message: msg}
		}

	case "max":
		num, ok := toFloat64(val)
		if !ok {
			return nil
		}
		threshold, ok := toFloat64(rule.Value)
		if !ok {
			return nil
		}
		if num > threshold {
			return &ErrorDetail{Field: fieldName, Rule: "max", Message: msg}
		}

	case "min_length":
		s, ok := val.(string)
		if !ok {
			return nil
		}
		threshold, ok := toFloat64(rule.Value)
		if !ok {
			return nil
		}
		if len(s) < int(threshold) {
			return &ErrorDetail{Field: fieldName, Rule: "min_length", Message: msg}
		}

	case "max_length":
		s, ok := val.(string)
		if !ok {
			return nil
		}
		threshold, ok := toFloat64(rule.Value)
		if !ok {
			return nil
		}
		if len(s) > int(threshold) {
			return &ErrorDetail{Field: fieldName, Rule: "max_length", Message: msg}
		}

	case "pattern":
		s, ok := val.(string)
		if !ok {
			return nil
		}
		pattern, ok := rule.Value.(string)
		if !ok {
			return nil
		}
		matched, err := regexp.MatchString(pattern, s)
		if err != nil || !matched {
			return &ErrorDetail{Field: fieldName, Rule: "pattern", Message: msg}
		}
	}

	return nil
}

// CompileExpression compiles an expression string into an expr-lang program.
func CompileExpression(expression string) (*vm.Program, error) {
	prog, err := expr.Compile(expression, expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile expression: %w", err)
	}
	return prog, nil
}

// EvaluateExpressionRule runs a compiled expression rule against env.
// Returns nil if the rule passes (expression is false), or an ErrorDetail if violated (expression is true).
func EvaluateExpressionRule(rule Rule, prog *vm.Program, env map[string]any) *ErrorDetail {
	if prog == nil {
		return &ErrorDetail{Rule: "expression", Message: "expression rule is not compiled"}
	}

	result, err := expr.Run(prog, env)
	if err != nil {
		return &ErrorDetail{Field: rule.Field, Rule: "expression", Message: fmt.Sprintf("rule evaluation error: %v", err)}
	}

	violated, ok := result.(bool)
	if !ok {
		return nil
	}

	if violated {
		msg := rule.Message
		if msg == "" {
			msg = "Expression rule violated"
		}
		return &ErrorDetail{Field: rule.Field, Rule: "expression", Message: msg}
	}

	return nil
}

// toFloat64 converts numeric types to float64.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	}
	return 0, false
}
