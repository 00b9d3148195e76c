// Package visibility decides whether a checkout field participates in the
// current submission. Card fields, for example, only apply while the buyer
// has picked a card payment method.
package visibility

// Evaluator reports whether a rule holds for a field given the current form
// values. An empty rule always holds.
type Evaluator interface {
	Eval(field, rule string, ctx Context) (bool, error)
}

// Context carries the values a rule is evaluated against. Values holds the
// form fields keyed by wire name; Extras lets callers expose flags that are
// not part of the form (reachable through the `extras.` prefix).
type Context struct {
	Values map[string]any
	Extras map[string]any
}

// EvaluatorFunc adapts a function into an Evaluator.
type EvaluatorFunc func(field, rule string, ctx Context) (bool, error)

func (fn EvaluatorFunc) Eval(field, rule string, ctx Context) (bool, error) {
	return fn(field, rule, ctx)
}

// Always is an Evaluator that treats every rule as satisfied.
var Always Evaluator = EvaluatorFunc(func(string, string, Context) (bool, error) {
	return true, nil
})
