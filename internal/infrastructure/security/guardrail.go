package security

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/doeshing/askai-go/internal/domain"
	"github.com/doeshing/askai-go/internal/pkg/filesystem"
	"github.com/doeshing/askai-go/internal/ports"
)

// Guardrail implements the SecurityService port. It is stateless after
// construction and safe for concurrent use.
type Guardrail struct {
	patterns []compiledPattern
	source   string
}

type compiledPattern struct {
	re   *regexp.Regexp
	rule DangerPattern
}

// DangerPattern describes a regex-based rule.
type DangerPattern struct {
	Pattern string `yaml:"pattern"`
	Level   string `yaml:"level"`
	Message string `yaml:"message"`
}

// RulesFile is the YAML schema root.
type RulesFile struct {
	Rules struct {
		DangerPatterns []DangerPattern `yaml:"danger_patterns"`
	} `yaml:"rules"`
}

// denyPatterns are always enforced; a rules file can add to them but never remove them.
var denyPatterns = []DangerPattern{
	{Pattern: `\brm\s+(?:-\S+\s+)*-(?:[a-zA-Z]*[rR][a-zA-Z]*|-recursive)\s+(?:[^\s;&|]+\s+)*["']?/+[.*]?/*["']?(?:[\s;&|]|$)`, Level: "blocked", Message: "Recursive deletion of the filesystem root"},
	{Pattern: `\bdd\s+[^;&|]*\bif=/dev/(?:zero|random|urandom)\b`, Level: "blocked", Message: "Raw device overwrite"},
	{Pattern: `\bdd\s+[^;&|]*\bof=/dev/(?:sd[a-z]|hd[a-z]|vd[a-z]|xvd[a-z]|nvme\d|mmcblk\d|disk\d)`, Level: "blocked", Message: "Raw device overwrite"},
	{Pattern: `\bmkfs(?:\.\w+)?\b`, Level: "blocked", Message: "Formatting a filesystem"},
	{Pattern: `>\s*/dev/(?:sd[a-z]|hd[a-z]|vd[a-z]|xvd[a-z]|nvme\d|mmcblk\d|disk\d)`, Level: "blocked", Message: "Writing to a block device"},
	{Pattern: `\bmv\s+/\*\s`, Level: "blocked", Message: "Moving the filesystem root"},
	{Pattern: `:\(\)\s*\{\s*:\s*\|\s*:\s*&\s*\}\s*;\s*:`, Level: "blocked", Message: "Fork bomb"},
	{Pattern: `\bchmod\s+(?:-\S+\s+)*-R\s+\S+\s+/(?:[\s;&|]|$)`, Level: "blocked", Message: "Recursive permission change of the filesystem root"},
}

// softPatterns are advisory; they never block.
var softPatterns = []DangerPattern{
	{Pattern: `\bsudo\b`, Level: "medium", Message: "Privilege escalation"},
	{Pattern: `\bdoas\b`, Level: "medium", Message: "Privilege escalation"},
	{Pattern: `(?:^|[\s;&|])su\s`, Level: "medium", Message: "Privilege escalation"},
	{Pattern: `\brm\s+(?:-\S+\s+)*-(?:[a-zA-Z]*[rRfF][a-zA-Z]*|-recursive|-force)\b`, Level: "high", Message: "Forced or recursive deletion"},
	{Pattern: `\bdd\s+if=`, Level: "high", Message: "Raw disk copy"},
	{Pattern: `(?:^|[\s;&|])format\s`, Level: "high", Message: "Formatting a volume"},
	{Pattern: `\bshred\b`, Level: "high", Message: "Irrecoverable file destruction"},
	{Pattern: `\bgit\s+push\s+(?:\S+\s+)*(?:--force\b|-f\b)`, Level: "high", Message: "Force push rewrites remote history"},
	{Pattern: `\bgit\s+reset\s+--hard\b`, Level: "high", Message: "Discards local changes"},
	{Pattern: `\bgit\s+clean\s+-\S*f`, Level: "high", Message: "Deletes untracked files"},
	{Pattern: `\bchmod\s+(?:-\S+\s+)*777\b`, Level: "high", Message: "Overly permissive chmod"},
	{Pattern: `\b(?:curl|wget)\b[^|]*\|\s*(?:sudo\s+)?(?:ba|z)?sh\b`, Level: "high", Message: "Piping a remote script to a shell"},
	{Pattern: `(?i)\bdrop\s+(?:table|database)\b`, Level: "high", Message: "Dropping database objects"},
	{Pattern: `\bkill\s+-9\s+-1\b`, Level: "high", Message: "Kills every process"},
}

// NewGuardrail loads extra rules from path (when present) on top of the built-in set.
// An empty path means ~/.askai/guardrail.yaml.
func NewGuardrail(path string) (*Guardrail, error) {
	path = filesystem.ExpandPath(path, filesystem.StatePath("guardrail.yaml"))
	extra, err := loadRules(path)
	if err != nil {
		return nil, err
	}

	return compile(path, extra)
}

// Builtin returns a guardrail with only the built-in rules. It is the
// fallback when the rules file cannot be used.
func Builtin() *Guardrail {
	g, err := compile("", nil)
	if err != nil {
		panic(err)
	}
	return g
}

func compile(source string, extra []DangerPattern) (*Guardrail, error) {
	rules := make([]DangerPattern, 0, len(denyPatterns)+len(softPatterns)+len(extra))
	rules = append(rules, denyPatterns...)
	rules = append(rules, softPatterns...)
	rules = append(rules, extra...)

	compiled := make([]compiledPattern, 0, len(rules))
	for _, rule := range rules {
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compile rule %q: %w", rule.Pattern, err)
		}
		compiled = append(compiled, compiledPattern{re: re, rule: rule})
	}
	return &Guardrail{patterns: compiled, source: source}, nil
}

// Evaluate implements ports.SecurityService. The most severe matching rule wins;
// every match contributes a reason.
func (g *Guardrail) Evaluate(command string) (domain.RiskAssessment, error) {
	if g == nil {
		return domain.RiskAssessment{}, errors.New("guardrail nil")
	}
	normalized := strings.Join(strings.Fields(command), " ")
	assessment := domain.RiskAssessment{Level: domain.RiskLow}
	for _, pattern := range g.patterns {
		if !pattern.re.MatchString(normalized) {
			continue
		}
		level := domain.ParseRiskLevel(pattern.rule.Level)
		if level.Severity() > assessment.Level.Severity() {
			assessment.Level = level
		}
		assessment.Reasons = appendUnique(assessment.Reasons, pattern.rule.Message)
		assessment.MatchedRules = append(assessment.MatchedRules, pattern.rule.Pattern)
	}
	return assessment, nil
}

// Source returns the rules file path this guardrail was built from.
func (g *Guardrail) Source() string {
	return g.source
}

// RuleCount returns how many rules are active.
func (g *Guardrail) RuleCount() int {
	return len(g.patterns)
}

func loadRules(path string) ([]DangerPattern, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read rules: %w", err)
	}
	var rules RulesFile
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parse rules %s: %w", path, err)
	}
	return rules.Rules.DangerPatterns, nil
}

func appendUnique(list []string, value string) []string {
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}

var _ ports.SecurityService = (*Guardrail)(nil)
