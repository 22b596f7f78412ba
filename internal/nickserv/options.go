package nickserv

import (
	"fmt"
	"regexp"
)

// Option keys accepted by ParseOptions
const (
	KeyPassword        = "password"
	KeyBotNick         = "botnick"
	KeyGhost           = "ghost"
	KeyIdentifyCommand = "identifycommand"
	KeyIdentifyPattern = "identifypattern"
	KeyLoggedInPattern = "loggedinpattern"
	KeyGhostPattern    = "ghostpattern"
)

// Defaults match Anope/Atheme phrasing
const (
	DefaultBotNick         = "NickServ"
	DefaultIdentifyCommand = "IDENTIFY %nick% %password%"
)

var (
	defaultIdentifyPattern = regexp.MustCompile(regexp.QuoteMeta("This nickname is registered"))
	defaultLoggedInPattern = regexp.MustCompile(regexp.QuoteMeta("You are now identified"))
	defaultGhostPattern    = regexp.MustCompile(regexp.QuoteMeta("has been ghosted"))
)

// ConfigError reports an invalid plugin option
type ConfigError struct {
	Key string
	Err error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("nickserv: invalid %s: %v", e.Key, e.Err)
	}
	return fmt.Sprintf("nickserv: %s must be a non-empty string", e.Key)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Options is the resolved plugin configuration
type Options struct {
	Password        string
	BotNick         string
	Ghost           bool
	IdentifyCommand string
	IdentifyPattern *regexp.Regexp
	LoggedInPattern *regexp.Regexp
	GhostPattern    *regexp.Regexp
}

// ParseOptions validates a raw option mapping and fills in defaults.
// The returned error is always a *ConfigError naming the offending key.
func ParseOptions(raw map[string]any) (Options, error) {
	opts := Options{
		BotNick:         DefaultBotNick,
		IdentifyCommand: DefaultIdentifyCommand,
		IdentifyPattern: defaultIdentifyPattern,
		LoggedInPattern: defaultLoggedInPattern,
		GhostPattern:    defaultGhostPattern,
	}

	password, ok, err := stringOption(raw, KeyPassword)
	if err != nil {
		return Options{}, err
	}
	if !ok {
		return Options{}, &ConfigError{Key: KeyPassword}
	}
	opts.Password = password

	if v, ok, err := stringOption(raw, KeyBotNick); err != nil {
		return Options{}, err
	} else if ok {
		opts.BotNick = v
	}

	if v, present := raw[KeyGhost]; present {
		b, ok := v.(bool)
		if !ok {
			return Options{}, &ConfigError{Key: KeyGhost, Err: fmt.Errorf("expected boolean, got %T", v)}
		}
		opts.Ghost = b
	}

	if v, ok, err := stringOption(raw, KeyIdentifyCommand); err != nil {
		return Options{}, err
	} else if ok {
		opts.IdentifyCommand = v
	}

	patterns := []struct {
		key string
		dst **regexp.Regexp
	}{
		{KeyIdentifyPattern, &opts.IdentifyPattern},
		{KeyLoggedInPattern, &opts.LoggedInPattern},
		{KeyGhostPattern, &opts.GhostPattern},
	}
	for _, p := range patterns {
		v, ok, err := stringOption(raw, p.key)
		if err != nil {
			return Options{}, err
		}
		if !ok {
			continue
		}
		re, err := regexp.Compile(v)
		if err != nil {
			return Options{}, &ConfigError{Key: p.key, Err: err}
		}
		*p.dst = re
	}

	return opts, nil
}

// stringOption reports whether key is present. A present key that is not a
// non-empty string is a ConfigError.
func stringOption(raw map[string]any, key string) (string, bool, error) {
	v, present := raw[key]
	if !present {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false, &ConfigError{Key: key}
	}
	return s, true, nil
}
