// Package templates manages category layouts that can be stamped onto a
// month: a few built-in presets plus layouts the user saved from an
// existing month.
package templates

import (
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"simplebudget/internal/core"
)

//go:embed builtin.yaml
var builtinYAML []byte

var (
	ErrNotFound        = errors.New("template not found")
	ErrBuiltIn         = errors.New("built-in templates cannot be deleted")
	ErrNothingSelected = errors.New("no categories selected")
)

type (
	SubcategoryPreset struct {
		Name     string
		Allotted core.Money
	}

	CategoryPreset struct {
		Name          string
		Budget        core.Money
		Subcategories []SubcategoryPreset
	}

	Template struct {
		ID          string
		Name        string
		Description string
		BuiltIn     bool
		Categories  []CategoryPreset
	}
)

// Select returns the presets whose names are listed, in template order.
// No names selects every category.
func (t Template) Select(names ...string) ([]CategoryPreset, error) {
	if len(names) == 0 {
		return t.Categories, nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []CategoryPreset
	for _, c := range t.Categories {
		if want[c.Name] {
			out = append(out, c)
			delete(want, c.Name)
		}
	}
	for n := range want {
		return nil, fmt.Errorf("template %q has no category %q", t.Name, n)
	}
	if len(out) == 0 {
		return nil, ErrNothingSelected
	}
	return out, nil
}

// YAML documents. Amounts are decimal strings so they survive a round trip
// without float rounding.
type (
	templateDoc struct {
		ID          string        `yaml:"id"`
		Name        string        `yaml:"name"`
		Description string        `yaml:"description"`
		Categories  []categoryDoc `yaml:"categories"`
	}

	categoryDoc struct {
		Name          string           `yaml:"name"`
		Budget        string           `yaml:"budget"`
		Subcategories []subcategoryDoc `yaml:"subcategories"`
	}

	subcategoryDoc struct {
		Name     string `yaml:"name"`
		Allotted string `yaml:"allotted"`
	}
)

func parseBuiltins(data []byte) ([]Template, error) {
	var docs []templateDoc
	if err := yaml.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("parse built-in templates: %w", err)
	}
	out := make([]Template, 0, len(docs))
	for _, d := range docs {
		cats, err := fromDocs(d.Categories)
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", d.ID, err)
		}
		out = append(out, Template{
			ID:          d.ID,
			Name:        d.Name,
			Description: d.Description,
			BuiltIn:     true,
			Categories:  cats,
		})
	}
	return out, nil
}

func fromDocs(docs []categoryDoc) ([]CategoryPreset, error) {
	out := make([]CategoryPreset, 0, len(docs))
	for _, d := range docs {
		budget, err := parseAmount(d.Budget)
		if err != nil {
			return nil, fmt.Errorf("category %q: %w", d.Name, err)
		}
		c := CategoryPreset{Name: d.Name, Budget: budget}
		for _, s := range d.Subcategories {
			allotted, err := parseAmount(s.Allotted)
			if err != nil {
				return nil, fmt.Errorf("subcategory %q: %w", s.Name, err)
			}
			c.Subcategories = append(c.Subcategories, SubcategoryPreset{Name: s.Name, Allotted: allotted})
		}
		out = append(out, c)
	}
	return out, nil
}

func toDocs(cats []CategoryPreset) []categoryDoc {
	out := make([]categoryDoc, 0, len(cats))
	for _, c := range cats {
		d := categoryDoc{Name: c.Name, Budget: c.Budget.Decimal().StringFixed(2)}
		for _, s := range c.Subcategories {
			d.Subcategories = append(d.Subcategories, subcategoryDoc{Name: s.Name, Allotted: s.Allotted.Decimal().StringFixed(2)})
		}
		out = append(out, d)
	}
	return out
}

func parseAmount(s string) (core.Money, error) {
	if s == "" {
		return core.Money{}, nil
	}
	return core.ParsePlannedAmount(s)
}

func encodeCategories(cats []CategoryPreset) ([]byte, error) {
	return yaml.Marshal(toDocs(cats))
}

func decodeCategories(data []byte) ([]CategoryPreset, error) {
	var docs []categoryDoc
	if err := yaml.Unmarshal(data, &docs); err != nil {
		return nil, err
	}
	return fromDocs(docs)
}

// PresetsFromTree captures the named categories of a tree, with their
// budgets and subcategory allotments. Transactions are not kept.
func PresetsFromTree(tree core.Tree, names ...string) ([]CategoryPreset, error) {
	if len(names) == 0 {
		names = tree.Names()
	}
	out := make([]CategoryPreset, 0, len(names))
	for _, name := range names {
		c, ok := tree[name]
		if !ok {
			return nil, fmt.Errorf("no category %q in this month", name)
		}
		p := CategoryPreset{Name: c.Name, Budget: c.Budget}
		for _, sub := range c.Items {
			p.Subcategories = append(p.Subcategories, SubcategoryPreset{Name: sub.Name, Allotted: sub.Allotted})
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, ErrNothingSelected
	}
	return out, nil
}
