package rulebook

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRules []byte

var ErrInvalidTable = errors.New("invalid rule table")

// Rule maps a lower-case keyword substring to a scripted reply.
type Rule struct {
	Keyword string `yaml:"keyword" json:"keyword"`
	Reply   string `yaml:"reply" json:"reply"`
}

// Table is the immutable keyword rule table plus the fixed widget copy.
// Rules keep their declaration order.
type Table struct {
	greeting   string
	fallback   string
	nameThanks string
	toastTitle string
	toastBody  string
	rules      []Rule
}

type document struct {
	Greeting   string `yaml:"greeting"`
	Fallback   string `yaml:"fallback"`
	NameThanks string `yaml:"nameThanks"`
	ToastTitle string `yaml:"toastTitle"`
	ToastBody  string `yaml:"toastBody"`
	Rules      []Rule `yaml:"rules"`
}

// Seed returns the table shipped with the binary.
func Seed() *Table {
	table, err := Parse(defaultRules)
	if err != nil {
		panic(fmt.Sprintf("embedded rules.yaml: %v", err))
	}
	return table
}

// Load returns the embedded table, or the one at path when path is set.
func Load(path string) (*Table, error) {
	if strings.TrimSpace(path) == "" {
		return Seed(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file %s: %w", path, err)
	}

	table, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	return table, nil
}

// Parse decodes a YAML rule table and validates it.
func Parse(data []byte) (*Table, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	if err := doc.validate(); err != nil {
		return nil, err
	}

	return &Table{
		greeting:   doc.Greeting,
		fallback:   doc.Fallback,
		nameThanks: doc.NameThanks,
		toastTitle: doc.ToastTitle,
		toastBody:  doc.ToastBody,
		rules:      append([]Rule(nil), doc.Rules...),
	}, nil
}

// singleNameVerb reports whether tmpl holds exactly one %s. A literal
// percent sign must be written as %%.
func singleNameVerb(tmpl string) bool {
	names := 0
	for i := 0; i < len(tmpl); i++ {
		if tmpl[i] != '%' {
			continue
		}
		if i+1 == len(tmpl) {
			return false
		}
		i++
		switch tmpl[i] {
		case '%':
		case 's':
			names++
		default:
			return false
		}
	}
	return names == 1
}

func (d document) validate() error {
	if strings.TrimSpace(d.Greeting) == "" {
		return fmt.Errorf("%w: greeting is required", ErrInvalidTable)
	}
	if strings.TrimSpace(d.Fallback) == "" {
		return fmt.Errorf("%w: fallback is required", ErrInvalidTable)
	}
	for field, tmpl := range map[string]string{"nameThanks": d.NameThanks, "toastBody": d.ToastBody} {
		if !singleNameVerb(tmpl) {
			return fmt.Errorf("%w: %s must contain exactly one %%s and no other verb", ErrInvalidTable, field)
		}
	}

	seen := make(map[string]struct{}, len(d.Rules))
	for i, rule := range d.Rules {
		if rule.Keyword == "" {
			return fmt.Errorf("%w: rule %d has an empty keyword", ErrInvalidTable, i)
		}
		// 输入会先转小写，大写关键词永远匹配不到。
		if rule.Keyword != strings.ToLower(rule.Keyword) {
			return fmt.Errorf("%w: keyword %q must be lower-case", ErrInvalidTable, rule.Keyword)
		}
		if strings.TrimSpace(rule.Reply) == "" {
			return fmt.Errorf("%w: keyword %q has an empty reply", ErrInvalidTable, rule.Keyword)
		}
		if _, dup := seen[rule.Keyword]; dup {
			return fmt.Errorf("%w: duplicate keyword %q", ErrInvalidTable, rule.Keyword)
		}
		seen[rule.Keyword] = struct{}{}
	}
	return nil
}

// Rules returns the rules in declaration order.
func (t *Table) Rules() []Rule {
	return append([]Rule(nil), t.rules...)
}

// Keywords lists the rule keywords in declaration order.
func (t *Table) Keywords() []string {
	keywords := make([]string, len(t.rules))
	for i, rule := range t.rules {
		keywords[i] = rule.Keyword
	}
	return keywords
}

// Len returns the number of rules.
func (t *Table) Len() int {
	return len(t.rules)
}

// At returns the i-th rule in declaration order.
func (t *Table) At(i int) Rule {
	return t.rules[i]
}

func (t *Table) Greeting() string { return t.greeting }

func (t *Table) Fallback() string { return t.fallback }

// NameThanks renders the acknowledgement appended after a name is captured.
func (t *Table) NameThanks(name string) string {
	return fmt.Sprintf(t.nameThanks, name)
}

// Toast renders the notification raised after a name is captured.
func (t *Table) Toast(name string) (title, description string) {
	return t.toastTitle, fmt.Sprintf(t.toastBody, name)
}
