// Package achievements holds the achievement rule catalog.
//
// Rules are plain records with a predicate over a single game session. Adding an
// achievement means adding an entry to the catalog, nothing else.
package achievements

import (
	"fmt"
	"maps"
	"slices"

	"github.com/Amund211/lilypad/internal/domain"
)

type Rule struct {
	Type         string
	Name         string
	Points       int
	Requirements string

	// Satisfied is evaluated against the triggering session only
	Satisfied func(session domain.GameSession) bool
}

// Achievement is the catalog entry persisted for this rule
func (r Rule) Achievement() domain.Achievement {
	return domain.Achievement{
		AchievementType: r.Type,
		Name:            r.Name,
		Description:     r.Requirements,
		Points:          r.Points,
	}
}

type Catalog struct {
	rules map[string]Rule
}

func NewCatalog(rules ...Rule) (*Catalog, error) {
	byType := make(map[string]Rule, len(rules))
	for _, rule := range rules {
		if rule.Type == "" {
			return nil, fmt.Errorf("rule %q is missing a type", rule.Name)
		}
		if rule.Name == "" {
			return nil, fmt.Errorf("rule %q is missing a name", rule.Type)
		}
		if rule.Points <= 0 {
			return nil, fmt.Errorf("rule %q must be worth a positive number of points", rule.Type)
		}
		if rule.Satisfied == nil {
			return nil, fmt.Errorf("rule %q is missing a predicate", rule.Type)
		}
		if _, ok := byType[rule.Type]; ok {
			return nil, fmt.Errorf("duplicate rule type %q", rule.Type)
		}
		byType[rule.Type] = rule
	}
	return &Catalog{rules: byType}, nil
}

func MustNewCatalog(rules ...Rule) *Catalog {
	catalog, err := NewCatalog(rules...)
	if err != nil {
		panic(err)
	}
	return catalog
}

func (c *Catalog) Get(achievementType string) (Rule, bool) {
	rule, ok := c.rules[achievementType]
	return rule, ok
}

// Types returns the rule types in sorted order
func (c *Catalog) Types() []string {
	return slices.Sorted(maps.Keys(c.rules))
}

func (c *Catalog) Len() int {
	return len(c.rules)
}

// Unearned returns the rules whose type is not in earnedTypes
func (c *Catalog) Unearned(earnedTypes []string) []Rule {
	earned := make(map[string]struct{}, len(earnedTypes))
	for _, t := range earnedTypes {
		earned[t] = struct{}{}
	}

	unearned := make([]Rule, 0, len(c.rules))
	for _, achievementType := range c.Types() {
		if _, ok := earned[achievementType]; ok {
			continue
		}
		unearned = append(unearned, c.rules[achievementType])
	}
	return unearned
}

// Satisfied evaluates the unearned rules against session and returns the ones that match
func (c *Catalog) Satisfied(earnedTypes []string, session domain.GameSession) []Rule {
	var satisfied []Rule
	for _, rule := range c.Unearned(earnedTypes) {
		if rule.Satisfied(session) {
			satisfied = append(satisfied, rule)
		}
	}
	return satisfied
}
