package collegemail

import "strings"

// Decision is the domain classifier's verdict on a confirmed email.
type Decision string

const (
	// DecisionAuto marks a recognized academic domain; the subject is
	// verified without human involvement.
	DecisionAuto Decision = "auto"
	// DecisionEscalate marks an unrecognized domain; an admin decides.
	DecisionEscalate Decision = "escalate"
	// DecisionPlain is the verdict when classification is disabled: the
	// email is confirmed as reachable and nothing more.
	DecisionPlain Decision = "plain"
)

// Classifier judges email domains against an exact allow-list and a set of
// academic suffixes. With both empty, classification is off and every
// confirmation yields DecisionPlain.
type Classifier struct {
	allowed  map[string]struct{}
	suffixes []string
}

// NewClassifier expects pre-lowercased, deduplicated inputs.
func NewClassifier(allowedDomains, academicSuffixes []string) *Classifier {
	allowed := make(map[string]struct{}, len(allowedDomains))
	for _, d := range allowedDomains {
		allowed[d] = struct{}{}
	}
	return &Classifier{allowed: allowed, suffixes: academicSuffixes}
}

func (c *Classifier) Enabled() bool {
	return len(c.allowed) > 0 || len(c.suffixes) > 0
}

func (c *Classifier) Classify(domain string) Decision {
	if !c.Enabled() {
		return DecisionPlain
	}
	domain = strings.ToLower(domain)
	if _, ok := c.allowed[domain]; ok {
		return DecisionAuto
	}
	for _, suffix := range c.suffixes {
		if strings.HasSuffix(domain, suffix) {
			return DecisionAuto
		}
	}
	return DecisionEscalate
}
