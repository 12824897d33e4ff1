package reporter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/stackgen-cli/topogen/internal/models"
)

// Problem is one validation or precondition failure in report form.
type Problem struct {
	Kind    string `json:"kind"`
	Field   string `json:"field,omitempty"`
	Line    int    `json:"line,omitempty"`
	Message string `json:"message"`
}

// ProblemsJSON is the stable JSON form of a validation run
type ProblemsJSON struct {
	SchemaVersion string    `json:"schema_version"`
	File          string    `json:"file"`
	Backend       string    `json:"backend,omitempty"`
	Valid         bool      `json:"valid"`
	Problems      []Problem `json:"problems"`
}

// ToProblems flattens err into report entries. Errors that carry no
// validation detail become a single entry.
func ToProblems(err error) []Problem {
	if err == nil {
		return []Problem{}
	}
	list, ok := models.AsValidationErrors(err)
	if !ok {
		return []Problem{{Kind: kindName(err), Message: err.Error()}}
	}

	problems := make([]Problem, 0, len(list))
	for _, e := range list {
		problems = append(problems, Problem{
			Kind:    kindName(e.Kind),
			Field:   e.Field,
			Line:    e.Line,
			Message: e.Message,
		})
	}
	return problems
}

// ToProblemsJSON builds the JSON form of a validation run
func ToProblemsJSON(file, backend string, err error) *ProblemsJSON {
	return &ProblemsJSON{
		SchemaVersion: "1.0",
		File:          file,
		Backend:       backend,
		Valid:         err == nil,
		Problems:      ToProblems(err),
	}
}

// ProblemsText renders a validation run for the terminal
func ProblemsText(file, backend string, err error) string {
	var sb strings.Builder

	red := color.New(color.FgRed).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	target := file
	if backend != "" {
		target = fmt.Sprintf("%s (%s)", file, backend)
	}

	if err == nil {
		sb.WriteString(green(fmt.Sprintf("✓ %s is valid\n", target)))
		return sb.String()
	}

	problems := ToProblems(err)
	noun := "problems"
	if len(problems) == 1 {
		noun = "problem"
	}
	sb.WriteString(red(fmt.Sprintf("✗ %s: %d %s\n", target, len(problems), noun)))

	for _, p := range problems {
		location := p.Field
		if p.Line > 0 {
			location = fmt.Sprintf("%s:%d", location, p.Line)
		}
		if location != "" {
			sb.WriteString(fmt.Sprintf("  %s %s %s\n", faint("["+p.Kind+"]"), location, p.Message))
		} else {
			sb.WriteString(fmt.Sprintf("  %s %s\n", faint("["+p.Kind+"]"), p.Message))
		}
	}

	return sb.String()
}

func kindName(err error) string {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		return "input"
	case errors.Is(err, models.ErrUnresolvedReference):
		return "reference"
	case errors.Is(err, models.ErrPrecondition):
		return "precondition"
	case errors.Is(err, models.ErrOutputTarget):
		return "output"
	}
	return "error"
}
