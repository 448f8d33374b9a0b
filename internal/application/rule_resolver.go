package application

import (
	"context"
	"strings"

	"support-desk/internal/domain"
	"support-desk/internal/ports/output"

	"github.com/sirupsen/logrus"
)

// keywordRule answers a family of questions with a documentation entry.
// A message triggers the rule when it contains every word in all and, if any
// is non-empty, at least one word in any.
type keywordRule struct {
	name         string
	all          []string
	any          []string
	titleFilters []string
	tokens       int
}

func (r keywordRule) matches(lowerMessage string) bool {
	for _, word := range r.all {
		if !strings.Contains(lowerMessage, word) {
			return false
		}
	}
	if len(r.any) == 0 {
		return true
	}
	for _, word := range r.any {
		if strings.Contains(lowerMessage, word) {
			return true
		}
	}
	return false
}

// Evaluated in order; the first rule with a matching document wins.
var demoRules = []keywordRule{
	{
		name:         "password_reset",
		all:          []string{"password"},
		any:          []string{"reset", "change"},
		titleFilters: []string{"password", "reset"},
		tokens:       45,
	},
	{
		name:         "refund",
		any:          []string{"refund", "money back"},
		titleFilters: []string{"refund"},
		tokens:       38,
	},
	{
		name:         "subscription",
		any:          []string{"subscription", "plan", "pricing"},
		titleFilters: []string{"subscription"},
		tokens:       52,
	},
	{
		name:         "account_setup",
		all:          []string{"account"},
		any:          []string{"setup", "create", "register"},
		titleFilters: []string{"account"},
		tokens:       41,
	},
	{
		name:         "payment",
		any:          []string{"payment", "pay", "credit card"},
		titleFilters: []string{"payment"},
		tokens:       44,
	},
	{
		name:         "api_integration",
		any:          []string{"api", "integration", "develop"},
		titleFilters: []string{"api"},
		tokens:       48,
	},
}

// RuleResolver struct - Demo mode resolver matching keywords against the documentation
type RuleResolver struct {
	docs    domain.DocumentSet
	rules   []keywordRule
	metrics output.Metrics
}

// NewRuleResolver func - Creates a demo mode resolver over docs
func NewRuleResolver(docs domain.DocumentSet, metrics output.Metrics) *RuleResolver {
	return &RuleResolver{
		docs:    docs,
		rules:   demoRules,
		metrics: metricsOrNoop(metrics),
	}
}

// Strategy func
func (r *RuleResolver) Strategy() Strategy {
	return StrategyDemo
}

// Resolve func - Returns the first documentation entry selected by a matching rule.
// A rule whose keywords match but whose document is missing does not stop
// evaluation; later rules may still answer.
func (r *RuleResolver) Resolve(_ context.Context, message string, _ []domain.Turn) domain.Reply {
	lower := strings.ToLower(message)

	for _, rule := range r.rules {
		if !rule.matches(lower) {
			continue
		}
		doc, ok := r.docs.FindByTitle(rule.titleFilters...)
		if !ok {
			logrus.Debugf("Rule %s matched but no document title contains %v", rule.name, rule.titleFilters)
			continue
		}
		reply := domain.Reply{Text: doc.Content, TokensUsed: rule.tokens, Rule: rule.name}
		r.metrics.ReplyResolved(string(StrategyDemo), rule.name, reply.TokensUsed)
		return reply
	}

	r.metrics.ReplyResolved(string(StrategyDemo), "fallback", FallbackTokens)
	return domain.Reply{Text: FallbackReply, TokensUsed: FallbackTokens, Rule: "fallback"}
}
