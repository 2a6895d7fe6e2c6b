package cmd

import (
	"regexp"
	"time"

	"github.com/caarlos0/duration"
)

type durationFlag struct {
	d *time.Duration
}

func newDurationFlag(val time.Duration, p *time.Duration) *durationFlag {
	*p = val
	return &durationFlag{d: p}
}

func (f *durationFlag) String() string {
	if f.d == nil {
		return ""
	}
	return f.d.String()
}

// Set accepts both time.ParseDuration syntax and extended units like 7d.
func (f *durationFlag) Set(s string) error {
	d, err := duration.Parse(s)
	if err != nil {
		return err //nolint:wrapcheck
	}
	*f.d = d
	return nil
}

func (f *durationFlag) Type() string {
	return "duration"
}

var flagRegexps = []*regexp.Regexp{
	regexp.MustCompile(`unknown flag: (?P<flag>-+\S+)`),
	regexp.MustCompile(`flag needs an argument: '\S' in (?P<flag>-\S+)`),
	regexp.MustCompile(`flag needs an argument: (?P<flag>-+\S+)`),
	regexp.MustCompile(`invalid argument ".*" for "(?P<flag>.+)" flag`),
}

type flagParseError struct {
	err    error
	flag   string
	reason string
}

func newFlagParseError(err error) flagParseError {
	ferr := flagParseError{err: err}
	msg := err.Error()
	switch {
	case flagRegexps[0].MatchString(msg):
		ferr.flag = flagRegexps[0].FindStringSubmatch(msg)[1]
		ferr.reason = "Flag %s is missing."
	case flagRegexps[1].MatchString(msg):
		ferr.flag = flagRegexps[1].FindStringSubmatch(msg)[1]
		ferr.reason = "Flag %s needs an argument."
	case flagRegexps[2].MatchString(msg):
		ferr.flag = flagRegexps[2].FindStringSubmatch(msg)[1]
		ferr.reason = "Flag %s needs an argument."
	case flagRegexps[3].MatchString(msg):
		ferr.flag = flagRegexps[3].FindStringSubmatch(msg)[1]
		ferr.reason = "Flag %s have an invalid argument."
	default:
		ferr.reason = "Flag parse error: %s"
		ferr.flag = msg
	}
	return ferr
}

func (f flagParseError) Error() string {
	return f.err.Error()
}

func (f flagParseError) ReasonFormat() string {
	return f.reason
}

func (f flagParseError) Flag() string {
	return f.flag
}
