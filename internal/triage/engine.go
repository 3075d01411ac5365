package triage

import (
	"strings"

	"github.com/linnemanlabs/sift/internal/feed"
)

// ruleDefault names the fallback when no rule matches.
const ruleDefault = "default"

// ruleInput is the derived view of an identity that the rules evaluate.
type ruleInput struct {
	suspicious bool
	trusted    bool
	external   bool
	signature  feed.Signature
}

// rule pairs a predicate with the risk it assigns when it is the first
// match in the table.
type rule struct {
	name  string
	match func(in ruleInput) bool
	risk  Risk
}

// Engine assigns a risk label to an identity by ordered first-match
// evaluation of a fixed rule table. Assess is pure: the same
// (Path, Signature, HasExternalConn) triple always yields the same label.
type Engine struct {
	policy Policy
	rules  []rule
}

// NewEngine builds a risk engine for the given policy. The rule table is
// fixed; only the path heuristics behind suspicious/trusted come from the
// policy.
func NewEngine(p Policy) *Engine {
	return &Engine{
		policy: p,
		rules: []rule{
			{"external_connection_suspicious_path",
				func(in ruleInput) bool { return in.external && in.suspicious }, RiskHigh},
			{"external_connection_untrusted",
				func(in ruleInput) bool { return in.external && !in.trusted }, RiskHigh},
			{"invalid_signature_suspicious_path",
				func(in ruleInput) bool { return in.suspicious && in.signature == feed.SigInvalid }, RiskHigh},
			{"suspicious_path_unsigned",
				func(in ruleInput) bool { return in.suspicious && unsigned(in.signature) }, RiskMid},
			{"suspicious_path",
				func(in ruleInput) bool { return in.suspicious }, RiskMid},
			{"unsigned_untrusted",
				func(in ruleInput) bool { return !in.trusted && unsigned(in.signature) }, RiskMid},
		},
	}
}

func unsigned(s feed.Signature) bool {
	return s == feed.SigUnknown || s == feed.SigUnsigned
}

// Assess returns the risk label for an identity.
func (e *Engine) Assess(id *Identity) Risk {
	risk, _ := e.assess(id.Path, id.Signature, id.HasExternalConn)
	return risk
}

// assess evaluates the rule table top to bottom and returns the label
// together with the name of the rule that matched.
func (e *Engine) assess(path string, sig feed.Signature, external bool) (Risk, string) {
	lower := strings.ToLower(path)
	in := ruleInput{
		suspicious: containsAny(lower, e.policy.SuspiciousFolders),
		trusted:    containsAny(lower, e.policy.TrustedPrefixes),
		external:   external,
		signature:  sig,
	}
	for _, r := range e.rules {
		if r.match(in) {
			return r.risk, r.name
		}
	}
	return RiskLow, ruleDefault
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
