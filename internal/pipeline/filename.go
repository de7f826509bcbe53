package pipeline

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/BlakeItOut/amazon-transcribe-post-call-analytics/internal/config"
)

const defaultLocation = "Etc/UTC"

// Metadata is what a job name yields about the call it records. Every field
// has a usable default: metadata extraction is best-effort and never fails
// a conversation.
type Metadata struct {
	GUID             string
	Agent            string
	ConversationTime time.Time
	// TimeParsed reports whether ConversationTime came from the filename
	// rather than the fallback clock.
	TimeParsed bool
	Location   string
}

// FilenameParser extracts call metadata from ASR job names using the
// configured regular expressions.
type FilenameParser struct {
	guidRe   *regexp.Regexp
	agentRe  *regexp.Regexp
	timeRe   *regexp.Regexp
	fieldMap []string
	location *time.Location
	locName  string
	log      *logrus.Entry
	now      func() time.Time
}

// NewFilenameParser compiles the configured patterns. Invalid patterns are
// logged and disable that extraction rather than failing startup.
func NewFilenameParser(cfg config.Config, log *logrus.Entry) *FilenameParser {
	p := &FilenameParser{
		fieldMap: strings.Fields(cfg.FilenameDatetimeFieldMap),
		locName:  cfg.ConversationLocation,
		log:      log,
		now:      time.Now,
	}
	if p.locName == "" {
		p.locName = defaultLocation
	}

	loc, err := time.LoadLocation(p.locName)
	if err != nil {
		log.WithError(err).WithField("location", p.locName).Warn("unknown conversation location, using UTC")
		loc = time.UTC
		p.locName = defaultLocation
	}
	p.location = loc

	p.guidRe = compilePattern(cfg.FilenameGUIDRegex, "guid", log)
	p.agentRe = compilePattern(cfg.FilenameAgentRegex, "agent", log)
	p.timeRe = compilePattern(cfg.FilenameDatetimeRegex, "datetime", log)
	return p
}

func compilePattern(pattern, name string, log *logrus.Entry) *regexp.Regexp {
	if pattern == "" {
		return nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		log.WithError(err).WithField("pattern", name).Warn("invalid filename pattern, extraction disabled")
		return nil
	}
	return re
}

// Parse extracts metadata from a job name. Anything that cannot be parsed
// falls back to its default: "None" identifiers and the current time.
func (p *FilenameParser) Parse(jobName string) Metadata {
	meta := Metadata{
		GUID:             "None",
		Agent:            "None",
		ConversationTime: p.now(),
		Location:         p.locName,
	}

	if s, ok := firstGroup(p.guidRe, jobName); ok {
		meta.GUID = s
	}
	if s, ok := firstGroup(p.agentRe, jobName); ok {
		meta.Agent = s
	}

	if p.timeRe != nil {
		match := p.timeRe.FindStringSubmatch(jobName)
		if match == nil {
			p.log.WithField("job", jobName).Info("no datetime in job name, using process time")
			return meta
		}
		when, err := p.assemble(match[1:])
		if err != nil {
			p.log.WithError(err).WithField("job", jobName).Warn("unparseable datetime in job name, using process time")
			return meta
		}
		meta.ConversationTime = when
		meta.TimeParsed = true
	}

	return meta
}

func firstGroup(re *regexp.Regexp, s string) (string, bool) {
	if re == nil {
		return "", false
	}
	match := re.FindStringSubmatch(s)
	switch {
	case len(match) > 1:
		return match[1], true
	case len(match) == 1:
		return match[0], true
	}
	return "", false
}

// assemble pairs captured groups with the strptime-style field map
// (e.g. "%H %M %S %f %m %d %Y") and builds the timestamp.
func (p *FilenameParser) assemble(groups []string) (time.Time, error) {
	if len(groups) != len(p.fieldMap) {
		return time.Time{}, fmt.Errorf("datetime pattern captured %d groups, field map has %d", len(groups), len(p.fieldMap))
	}

	now := p.now().In(p.location)
	year, month, day := now.Year(), int(now.Month()), now.Day()
	var hour, minute, sec, nsec int

	for i, field := range p.fieldMap {
		v, err := strconv.Atoi(groups[i])
		if err != nil {
			return time.Time{}, fmt.Errorf("field %s: %w", field, err)
		}
		switch field {
		case "%Y":
			year = v
		case "%m":
			month = v
		case "%d":
			day = v
		case "%H":
			hour = v
		case "%M":
			minute = v
		case "%S":
			sec = v
		case "%f":
			// Fractional seconds: digit count sets the precision.
			scale := 9 - len(groups[i])
			if scale < 0 {
				return time.Time{}, fmt.Errorf("field %%f: too many digits in %q", groups[i])
			}
			nsec = v
			for j := 0; j < scale; j++ {
				nsec *= 10
			}
		default:
			return time.Time{}, fmt.Errorf("unsupported field %q", field)
		}
	}

	return time.Date(year, time.Month(month), day, hour, minute, sec, nsec, p.location), nil
}
