package logs

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const xrayStamp = "2006/01/02 15:04:05"

var (
	reXray    = regexp.MustCompile(`\d{4}/\d{2}/\d{2} \d{2}:\d{2}:\d{2}`)
	reMihomo  = regexp.MustCompile(`time="(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?Z)" level=(\w+) msg="(.+)"`)
	reAnsi    = regexp.MustCompile(`\x1b\[\d+m`)
	reLevel   = regexp.MustCompile(`\[(DEBUG|INFO|WARN|ERROR|FATAL)\]`)
	reLevelWd = regexp.MustCompile(`\b(DEBUG|INFO|WARN|ERROR|FATAL)\b`)

	mihomoLevels = map[string]string{
		"debug":   "[DEBUG]",
		"info":    "[INFO]",
		"warning": "[WARN]",
		"error":   "[ERROR]",
		"fatal":   "[FATAL]",
	}

	ansiColors = strings.NewReplacer(
		"\x1b[32m", `<span style="color: #00cc00;">`,
		"\x1b[92m", `<span style="color: #00cc00;">`,
		"\x1b[31m", `<span style="color: #ef4444;">`,
		"\x1b[91m", `<span style="color: #ef4444;">`,
		"\x1b[33m", `<span style="color: #f59e0b;">`,
		"\x1b[93m", `<span style="color: #f59e0b;">`,
		"\x1b[96m", `<span style="color: #8BCEF7;">`,
		"\x1b[0m", "</span>",
	)

	xrayLevels = strings.NewReplacer(
		"[Debug]", "[DEBUG]",
		"[Info]", "[INFO]",
		"[Warning]", "[WARN]",
		"[Error]", "[ERROR]",
	)
)

// AdjustTimezone shifts the timestamps of an xray or mihomo log line by offset
// hours and normalizes the level markers. Mihomo's logfmt lines are rewritten
// into the xray layout.
func AdjustTimezone(line string, offset int) string {
	if offset == 0 {
		return xrayLevels.Replace(line)
	}
	d := time.Duration(offset) * time.Hour

	line = reXray.ReplaceAllStringFunc(line, func(m string) string {
		t, err := time.Parse(xrayStamp, m)
		if err != nil {
			return m
		}
		return t.Add(d).Format(xrayStamp)
	})

	line = reMihomo.ReplaceAllStringFunc(line, func(m string) string {
		p := reMihomo.FindStringSubmatch(m)
		if len(p) != 4 {
			return m
		}
		t, err := time.Parse(time.RFC3339Nano, p[1])
		if err != nil {
			return m
		}
		lvl := mihomoLevels[p[2]]
		if lvl == "" {
			lvl = "[INFO]"
		}
		return t.Add(d).Format("2006/01/02 15:04:05.000000") + " " + lvl + " " + p[3]
	})

	return xrayLevels.Replace(line)
}

func badge(level string) string {
	return fmt.Sprintf(`<span class="log-badge log-badge-%s" data-filter="%s">%s</span>`,
		strings.ToLower(level), level, level)
}

// RenderLine turns a raw log line into the HTML fragment the log viewer shows.
// Empty lines render to "".
func RenderLine(line string) string {
	if line == "" {
		return ""
	}

	content := ansiColors.Replace(line)
	content = reAnsi.ReplaceAllString(content, "")

	bracketed := false
	content = reLevel.ReplaceAllStringFunc(content, func(m string) string {
		bracketed = true
		return badge(strings.Trim(m, "[]"))
	})
	if !bracketed {
		content = reLevelWd.ReplaceAllStringFunc(content, badge)
	}

	var b strings.Builder
	b.Grow(len(content) + 32)
	b.WriteString(`<div class="log-line">`)
	b.WriteString(content)
	b.WriteString(`</div>`)
	return b.String()
}

// Filter keeps the lines containing any of the |-separated terms of query.
func Filter(lines []string, query string) []string {
	var terms []string
	for _, t := range strings.Split(query, "|") {
		if t != "" {
			terms = append(terms, t)
		}
	}

	matched := []string{}
	for _, l := range lines {
		for _, t := range terms {
			if strings.Contains(l, t) {
				matched = append(matched, l)
				break
			}
		}
	}
	return matched
}

// Tail returns the last n lines.
func Tail(lines []string, n int) []string {
	if n > 0 && len(lines) > n {
		return lines[len(lines)-n:]
	}
	return lines
}
