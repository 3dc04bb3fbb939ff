package mention

import (
	"context"
	"log/slog"

	"github.com/hrygo/mentionsense/server/internal/observability"
)

// Rule inspects a mention and either claims it with a decision or returns nil
// to pass it on to the next rule.
type Rule struct {
	Name     string
	Evaluate func(ctx context.Context, in *Input) (*Decision, error)
}

// Classifier applies rules in order; the first decision wins.
type Classifier struct {
	rules []Rule
}

// NewClassifier creates a classifier over rules, highest priority first.
func NewClassifier(rules ...Rule) *Classifier {
	return &Classifier{rules: rules}
}

// Classify returns the decision of the first rule that claims the mention.
// A mention no rule claims is dropped.
func (c *Classifier) Classify(ctx context.Context, in *Input) (*Decision, error) {
	log := observability.Logger(ctx)
	for _, rule := range c.rules {
		decision, err := rule.Evaluate(ctx, in)
		if err != nil {
			return nil, err
		}
		if decision != nil {
			log.Debug("mention classified",
				slog.String("rule", rule.Name),
				slog.String(observability.LogFieldOutcome, string(decision.Outcome)))
			return decision, nil
		}
	}
	return &Decision{Outcome: OutcomeDrop, Reason: "no rule matched"}, nil
}
