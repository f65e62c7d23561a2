package client

import (
	"fmt"
	"regexp"
	"strings"
)

// CompileError is a failed build. Log holds the compiler output.
type CompileError struct {
	Status      int
	Log         string
	Diagnostics []Diagnostic
}

func (e *CompileError) Error() string {
	if len(e.Diagnostics) == 0 {
		return fmt.Sprintf("client: compile failed with status %d", e.Status)
	}
	return fmt.Sprintf("client: compile failed with %d error(s), first: %s", len(e.Diagnostics), e.Diagnostics[0].Title)
}

// Diagnostic is one compiler error extracted from a build log.
type Diagnostic struct {
	Code    string `json:"code,omitempty"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

var errorHeader = regexp.MustCompile(`^error(?:\[(E\d+)\])?: (.+)$`)

// ExtractCompileErrors splits a rustc log into its error diagnostics. Each
// starts at an "error:" or "error[Ennnn]:" header and runs until the next
// blank line; the summary lines rustc prints at the end are dropped.
func ExtractCompileErrors(log string) []Diagnostic {
	var (
		out  []Diagnostic
		cur  *Diagnostic
		body []string
	)
	flush := func() {
		if cur != nil {
			cur.Message = strings.Join(body, "\n")
			out = append(out, *cur)
		}
		cur, body = nil, nil
	}

	for _, line := range strings.Split(log, "\n") {
		line = strings.TrimRight(line, "\r")
		if m := errorHeader.FindStringSubmatch(line); m != nil {
			flush()
			title := strings.TrimSpace(m[2])
			if strings.HasPrefix(title, "aborting due to") || strings.HasPrefix(title, "could not compile") {
				continue
			}
			cur = &Diagnostic{Code: m[1], Title: title}
			continue
		}
		if cur == nil {
			continue
		}
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		body = append(body, line)
	}
	flush()
	return out
}
