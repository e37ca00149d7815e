package logging

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

// PrefixedFormatter is a logging text formatter that logs with a prefix
type PrefixedFormatter struct {
	Prefix           string
	TimeFormat       string
	MaxMessageLength int
	NoColor          bool

	mu        sync.Mutex
	maxMsgLen int
	format    string
	init      sync.Once
}

func NewPrefixedFormatter(prefix, timeFormat string) *PrefixedFormatter {
	if timeFormat == "" {
		timeFormat = time.RFC3339
	}
	return &PrefixedFormatter{
		Prefix:           prefix,
		TimeFormat:       timeFormat,
		MaxMessageLength: 250,
	}
}

func levelColor(l logrus.Level) color.Attribute {
	switch l {
	case logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel:
		return color.FgRed
	case logrus.WarnLevel:
		return color.FgYellow
	case logrus.InfoLevel:
		return color.FgCyan
	default:
		return color.FgWhite
	}
}

// Format using the prefixed formatter
func (pf *PrefixedFormatter) Format(e *logrus.Entry) ([]byte, error) {
	pf.init.Do(func() {
		if pf.TimeFormat == "" {
			pf.TimeFormat = time.RFC3339
		}
		switch {
		case pf.NoColor && pf.Prefix == "":
			pf.format = "[%[1]s] %-7[3]s %[4]s%[5]s"
		case pf.NoColor:
			pf.format = "[%[1]s] %-7[3]s %[4]s: %[5]s"
		case pf.Prefix == "":
			pf.format = "\x1b[90m[%s]\x1b[0m \x1b[%dm%-7s\x1b[0m %s%s"
		default:
			pf.format = "\x1b[90m[%s]\x1b[0m \x1b[%dm%-7s\x1b[0m %s: %s"
		}
	})

	var (
		b     bytes.Buffer
		col   = levelColor(e.Level)
		keys  = make([]string, 0, len(e.Data))
		level = strings.ToUpper(e.Level.String())
	)
	for k := range e.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	msglen := len(e.Message)
	pf.mu.Lock()
	if pf.MaxMessageLength > 0 && msglen > pf.MaxMessageLength {
		msglen = pf.MaxMessageLength
	}
	if pf.maxMsgLen < msglen {
		pf.maxMsgLen = msglen
	}
	fmt.Fprintf(&b, pf.format,
		e.Time.Format(pf.TimeFormat), col, level, pf.Prefix, e.Message)
	b.WriteString(strings.Repeat(" ", pf.maxMsgLen-msglen))
	pf.mu.Unlock()

	for _, k := range keys {
		val := e.Data[k]
		s, ok := val.(string)
		if !ok {
			s = fmt.Sprint(val)
		}
		if pf.NoColor {
			fmt.Fprintf(&b, " %s=", k)
		} else {
			fmt.Fprintf(&b, " \x1b[%dm%s\x1b[0m=", col, k)
		}
		if needsQuotes(s) {
			fmt.Fprintf(&b, "%q", s)
		} else {
			b.WriteString(s)
		}
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

// SilentFormatter is a logrus formatter that does nothing
type SilentFormatter struct{}

// Format does nothing
func (sf *SilentFormatter) Format(*logrus.Entry) ([]byte, error) {
	return nil, nil
}

func needsQuotes(s string) bool {
	if len(s) == 0 {
		return true
	}
	for _, c := range s {
		if c < '!' || c > '~' {
			return true
		}
	}
	return false
}
