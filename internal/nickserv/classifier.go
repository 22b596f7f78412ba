package nickserv

import "regexp"

// Intent is what a notice from the agent is asking of us
type Intent int

const (
	IntentNone Intent = iota
	IntentIdentifyRequest
	IntentLoggedIn
	IntentGhosted
)

func (i Intent) String() string {
	switch i {
	case IntentIdentifyRequest:
		return "identify-request"
	case IntentLoggedIn:
		return "logged-in"
	case IntentGhosted:
		return "ghosted"
	default:
		return "none"
	}
}

// Classifier maps agent notice text to an Intent. Services packages phrase
// things differently, so the plugin never looks at the text itself.
type Classifier interface {
	Classify(text string) Intent
}

// ClassifierFunc adapts a plain function to Classifier
type ClassifierFunc func(text string) Intent

// Classify calls f(text)
func (f ClassifierFunc) Classify(text string) Intent { return f(text) }

// PatternClassifier tests the three configured patterns in order and
// returns the first that matches.
type PatternClassifier struct {
	Identify *regexp.Regexp
	LoggedIn *regexp.Regexp
	Ghosted  *regexp.Regexp
}

// NewPatternClassifier builds a classifier from resolved options
func NewPatternClassifier(opts Options) *PatternClassifier {
	return &PatternClassifier{
		Identify: opts.IdentifyPattern,
		LoggedIn: opts.LoggedInPattern,
		Ghosted:  opts.GhostPattern,
	}
}

// Classify implements Classifier
func (c *PatternClassifier) Classify(text string) Intent {
	switch {
	case matches(c.Identify, text):
		return IntentIdentifyRequest
	case matches(c.LoggedIn, text):
		return IntentLoggedIn
	case matches(c.Ghosted, text):
		return IntentGhosted
	}
	return IntentNone
}

func matches(re *regexp.Regexp, text string) bool {
	return re != nil && re.MatchString(text)
}
