package keyword

import (
	"strings"

	"github.com/zhouzirui/lavajato/backend/internal/model/rulebook"
)

// Resolver 把用户的自由文本映射成脚本化回复。
type Resolver struct {
	table *rulebook.Table
}

// NewResolver binds a resolver to an immutable rule table.
func NewResolver(table *rulebook.Table) *Resolver {
	if table == nil {
		panic("keyword: nil rule table")
	}
	return &Resolver{table: table}
}

// Resolve returns the reply for text, or the table fallback when nothing matches.
func (r *Resolver) Resolve(text string) string {
	return Resolve(r.table, text)
}

// Match reports the winning rule for text.
func (r *Resolver) Match(text string) (rulebook.Rule, bool) {
	return Match(r.table, text)
}

// Table exposes the bound rule table.
func (r *Resolver) Table() *rulebook.Table {
	return r.table
}

// Resolve is the stateless form of Resolver.Resolve.
func Resolve(table *rulebook.Table, text string) string {
	if rule, ok := Match(table, text); ok {
		return rule.Reply
	}
	return table.Fallback()
}

// Match scans every rule in declaration order and keeps the last one whose
// keyword is a substring of the lower-cased text. Matching is not whole-word:
// "contatos" still hits "contato".
//
// Last-match-wins mirrors the behaviour of the widget this backend replaces.
func Match(table *rulebook.Table, text string) (rulebook.Rule, bool) {
	normalized := strings.ToLower(text)

	var (
		winner rulebook.Rule
		found  bool
	)
	for i := 0; i < table.Len(); i++ {
		rule := table.At(i)
		if strings.Contains(normalized, rule.Keyword) {
			winner = rule
			found = true
		}
	}
	return winner, found
}
