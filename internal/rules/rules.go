package rules

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/stackgen-cli/topogen/internal/models"
)

// Config defines custom diff rules. It is read from the "diff" section of
// the settings file.
type Config struct {
	// SeverityOverrides maps path patterns to severity levels
	SeverityOverrides []SeverityRule `mapstructure:"severity_overrides" yaml:"severity_overrides"`

	// IgnorePatterns defines paths to completely ignore
	IgnorePatterns []IgnoreRule `mapstructure:"ignore_patterns" yaml:"ignore_patterns"`

	// TargetIgnores defines per component or resource ignore lists
	TargetIgnores map[string]TargetIgnoreRules `mapstructure:"target_ignores" yaml:"target_ignores"`

	// Categories defines custom category mappings
	Categories map[string][]string `mapstructure:"categories" yaml:"categories"`
}

// SeverityRule maps a path pattern to a severity
type SeverityRule struct {
	Pattern  string `mapstructure:"pattern" yaml:"pattern"`   // glob or regex pattern
	Severity string `mapstructure:"severity" yaml:"severity"` // info, warning, breaking
	IsRegex  bool   `mapstructure:"regex" yaml:"regex"`       // if true, use regex matching
}

// IgnoreRule defines what to ignore
type IgnoreRule struct {
	Pattern string `mapstructure:"pattern" yaml:"pattern"` // path pattern to ignore
	IsRegex bool   `mapstructure:"regex" yaml:"regex"`     // if true, use regex matching
	Reason  string `mapstructure:"reason" yaml:"reason"`   // why it's ignored (for reports)
}

// TargetIgnoreRules defines ignores for one component or resource
type TargetIgnoreRules struct {
	Paths  []string `mapstructure:"paths" yaml:"paths"`   // paths to ignore for this target
	Fields []string `mapstructure:"fields" yaml:"fields"` // field names to ignore (e.g., "image", "environment")
}

// Rules holds the compiled rules configuration
type Rules struct {
	config           Config
	severityPatterns []compiledSeverity
	ignorePatterns   []compiledIgnore
}

type compiledSeverity struct {
	pattern  *regexp.Regexp
	severity models.Severity
}

type compiledIgnore struct {
	pattern *regexp.Regexp
	reason  string
}

// Compile validates a rules configuration and compiles its patterns
func Compile(config Config) (*Rules, error) {
	rules := &Rules{
		config:           config,
		severityPatterns: make([]compiledSeverity, 0, len(config.SeverityOverrides)),
		ignorePatterns:   make([]compiledIgnore, 0, len(config.IgnorePatterns)),
	}

	for i, sr := range config.SeverityOverrides {
		re, err := compilePattern(sr.Pattern, sr.IsRegex)
		if err != nil {
			return nil, fmt.Errorf("severity_overrides[%d]: %w", i, err)
		}
		sev, ok := parseSeverity(sr.Severity)
		if !ok {
			return nil, fmt.Errorf("severity_overrides[%d]: unknown severity %q", i, sr.Severity)
		}
		rules.severityPatterns = append(rules.severityPatterns, compiledSeverity{pattern: re, severity: sev})
	}

	for i, ir := range config.IgnorePatterns {
		re, err := compilePattern(ir.Pattern, ir.IsRegex)
		if err != nil {
			return nil, fmt.Errorf("ignore_patterns[%d]: %w", i, err)
		}
		rules.ignorePatterns = append(rules.ignorePatterns, compiledIgnore{pattern: re, reason: ir.Reason})
	}

	return rules, nil
}

// Empty returns rules that change nothing
func Empty() *Rules {
	return &Rules{}
}

// GetSeverityOverride returns custom severity if matched, empty otherwise
func (r *Rules) GetSeverityOverride(path string) (models.Severity, bool) {
	for _, sp := range r.severityPatterns {
		if sp.pattern.MatchString(path) {
			return sp.severity, true
		}
	}
	return "", false
}

// ShouldIgnore returns true if the path should be ignored
func (r *Rules) ShouldIgnore(path string) (bool, string) {
	for _, ip := range r.ignorePatterns {
		if ip.pattern.MatchString(path) {
			return true, ip.reason
		}
	}
	return false, ""
}

// ShouldIgnoreTargetField returns true if the field should be ignored for a
// component or resource. Target names match case-insensitively because the
// settings loader folds keys to lower case.
func (r *Rules) ShouldIgnoreTargetField(target, field string) bool {
	for name, ti := range r.config.TargetIgnores {
		if !strings.EqualFold(name, target) {
			continue
		}
		for _, f := range ti.Fields {
			if f == field {
				return true
			}
		}
		for _, p := range ti.Paths {
			if matchGlob(p, field) {
				return true
			}
		}
	}
	return false
}

// Apply drops ignored changes, applies severity overrides and recounts the summary
func (r *Rules) Apply(report *models.DiffReport) *models.DiffReport {
	var filtered []models.Change
	var breakingCount, warningCount, infoCount int

	for _, c := range report.Changes {
		if ignore, _ := r.ShouldIgnore(c.Path); ignore {
			continue
		}

		if (c.Scope == models.ScopeComponent || c.Scope == models.ScopeResource) &&
			r.ShouldIgnoreTargetField(c.Name, fieldFromPath(c.Path)) {
			continue
		}

		if severity, ok := r.GetSeverityOverride(c.Path); ok {
			c.Severity = severity
		}

		filtered = append(filtered, c)

		switch c.Severity {
		case models.SeverityBreaking:
			breakingCount++
		case models.SeverityWarning:
			warningCount++
		default:
			infoCount++
		}
	}

	result := models.NewDiffReport()
	result.Summary = report.Summary
	result.Changes = append(result.Changes, filtered...)
	result.Summary.TotalChanges = len(filtered)
	result.Summary.BreakingCount = breakingCount
	result.Summary.WarningCount = warningCount
	result.Summary.InfoCount = infoCount
	return result
}

// Category returns the category for a change. Custom categories are checked
// in name order before the defaults.
func (r *Rules) Category(c models.Change) string {
	if len(r.config.Categories) > 0 {
		names := make([]string, 0, len(r.config.Categories))
		for name := range r.config.Categories {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			for _, p := range r.config.Categories[name] {
				if matchGlob(p, c.Path) {
					return name
				}
			}
		}
	}
	return DefaultCategory(c)
}

// DefaultCategory determines the built-in category of a change
func DefaultCategory(c models.Change) string {
	path := c.Path

	switch {
	case strings.Contains(path, ".environment."):
		return "environment"
	case strings.Contains(path, ".ports."), strings.HasSuffix(path, ".port"):
		return "ports"
	case strings.HasPrefix(path, "mappings."):
		return "mappings"
	case strings.HasSuffix(path, ".image"), strings.HasSuffix(path, ".path"), strings.HasSuffix(path, ".type") && c.Scope == models.ScopeResource:
		return "images"
	case strings.HasSuffix(path, ".tls"):
		return "tls"
	case c.Scope == models.ScopeEdge:
		return "edges"
	case c.Scope == models.ScopeEndpoint:
		return "endpoints"
	case c.Kind != models.ChangeModified:
		return "membership"
	}
	return "other"
}

func compilePattern(pattern string, isRegex bool) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, fmt.Errorf("empty pattern")
	}
	if isRegex {
		return regexp.Compile(pattern)
	}
	return globRegexp(pattern)
}

// globRegexp turns a simple glob (* wildcards) into an anchored regexp
func globRegexp(pattern string) (*regexp.Regexp, error) {
	quoted := regexp.QuoteMeta(pattern)
	quoted = strings.ReplaceAll(quoted, `\*`, ".*")
	return regexp.Compile("^" + quoted + "$")
}

// matchGlob does simple glob matching (* wildcards)
func matchGlob(pattern, str string) bool {
	re, err := globRegexp(pattern)
	if err != nil {
		return pattern == str
	}
	return re.MatchString(str)
}

func parseSeverity(s string) (models.Severity, bool) {
	switch models.Severity(strings.ToLower(s)) {
	case models.SeverityInfo:
		return models.SeverityInfo, true
	case models.SeverityWarning:
		return models.SeverityWarning, true
	case models.SeverityBreaking:
		return models.SeverityBreaking, true
	}
	return "", false
}

// fieldFromPath extracts the field from a path like "components.api.environment.DEBUG"
func fieldFromPath(path string) string {
	parts := strings.Split(path, ".")
	if len(parts) >= 3 {
		return parts[2]
	}
	return ""
}
