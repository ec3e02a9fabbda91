// Package forecastfile parses raw forecast text (CSV with a header row)
// into tour templates.
package forecastfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jszwec/csvutil"

	"github.com/example/roster/internal/models"
	"github.com/example/roster/internal/ports/secondary"
)

// row is one CSV line. The header must carry these column names; extra
// columns are ignored.
type row struct {
	Weekday       int    `csv:"weekday"`
	Start         string `csv:"start"`
	End           string `csv:"end"`
	Headcount     int    `csv:"headcount"`
	Depot         string `csv:"depot"`
	Skill         string `csv:"skill"`
	SplitGroup    string `csv:"split_group,omitempty"`
	CrossMidnight bool   `csv:"cross_midnight,omitempty"`
}

// Parser implements secondary.ForecastParser for CSV forecast text.
type Parser struct{}

// NewParser creates a CSV forecast parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse turns raw CSV into tour templates. Structural problems (unreadable
// rows, out-of-range values) yield a fail verdict; suspicious but usable
// rows (zero headcount, lone split parts) yield warn. Templates are returned
// even on fail so callers can show what did parse.
func (p *Parser) Parse(raw string) (*secondary.ParseResult, error) {
	result := &secondary.ParseResult{Verdict: secondary.VerdictPass}

	// csvutil decodes from a csv.Reader, not a plain io.Reader.
	dec, err := csvutil.NewDecoder(csv.NewReader(strings.NewReader(raw)))
	if err != nil {
		result.Verdict = secondary.VerdictFail
		result.Problems = append(result.Problems, fmt.Sprintf("unreadable forecast: %v", err))
		return result, nil
	}

	splitRows := map[string]int{}
	line := 1 // header
	for {
		line++
		var r row
		err := dec.Decode(&r)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			p.fail(result, line, fmt.Sprintf("unreadable row: %v", err))
			continue
		}

		problems := validateRow(&r)
		if len(problems) > 0 {
			for _, msg := range problems {
				p.fail(result, line, msg)
			}
			continue
		}

		if r.Headcount == 0 {
			p.warn(result, line, "zero headcount, row produces no tours")
		}
		if r.End <= r.Start {
			// Wrap past midnight even when the flag was left off.
			r.CrossMidnight = true
		}
		if r.SplitGroup != "" {
			splitRows[splitKey(r.Weekday, r.SplitGroup)]++
		}

		result.Templates = append(result.Templates, &models.TourTemplate{
			Weekday:       r.Weekday,
			StartTime:     r.Start,
			EndTime:       r.End,
			Headcount:     r.Headcount,
			Depot:         strings.ToLower(strings.TrimSpace(r.Depot)),
			Skill:         strings.ToLower(strings.TrimSpace(r.Skill)),
			SplitGroup:    strings.TrimSpace(r.SplitGroup),
			CrossMidnight: r.CrossMidnight,
		})
	}

	for key, n := range splitRows {
		if n < 2 {
			p.warn(result, 0, fmt.Sprintf("split group %s has a single part", key))
		}
	}
	if len(result.Templates) == 0 && result.Verdict != secondary.VerdictFail {
		result.Verdict = secondary.VerdictFail
		result.Problems = append(result.Problems, "forecast contains no tour rows")
	}
	return result, nil
}

func validateRow(r *row) []string {
	var problems []string
	if r.Weekday < 0 || r.Weekday > 6 {
		problems = append(problems, fmt.Sprintf("weekday %d out of range 0-6", r.Weekday))
	}
	if !validClock(r.Start) {
		problems = append(problems, fmt.Sprintf("invalid start time %q", r.Start))
	}
	if !validClock(r.End) {
		problems = append(problems, fmt.Sprintf("invalid end time %q", r.End))
	}
	if r.Headcount < 0 {
		problems = append(problems, fmt.Sprintf("negative headcount %d", r.Headcount))
	}
	if strings.TrimSpace(r.Depot) == "" {
		problems = append(problems, "missing depot")
	}
	if strings.TrimSpace(r.Skill) == "" {
		problems = append(problems, "missing skill")
	}
	return problems
}

func validClock(s string) bool {
	_, err := time.Parse("15:04", s)
	return err == nil
}

func splitKey(weekday int, group string) string {
	return fmt.Sprintf("%d/%s", weekday, group)
}

func (p *Parser) fail(result *secondary.ParseResult, line int, msg string) {
	result.Verdict = secondary.VerdictFail
	result.Problems = append(result.Problems, problemAt(line, msg))
}

func (p *Parser) warn(result *secondary.ParseResult, line int, msg string) {
	if result.Verdict == secondary.VerdictPass {
		result.Verdict = secondary.VerdictWarn
	}
	result.Problems = append(result.Problems, problemAt(line, msg))
}

func problemAt(line int, msg string) string {
	if line > 0 {
		return fmt.Sprintf("line %d: %s", line, msg)
	}
	return msg
}

// Ensure Parser implements the interface
var _ secondary.ForecastParser = (*Parser)(nil)
