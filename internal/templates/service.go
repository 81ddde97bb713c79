package templates

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"simplebudget/internal/core"
	"simplebudget/internal/events"
	"simplebudget/internal/log"
	"simplebudget/internal/preference"
	"simplebudget/internal/session"
)

// subcategoryConcurrency caps parallel subcategory creates per category.
const subcategoryConcurrency = 4

// Target is where templates are applied. *session.Store satisfies it.
type Target interface {
	Snapshot() session.State
	Batch(ctx context.Context, kind, key string, fn func(ctx context.Context, scope session.Scope, api session.API) error) error
}

var _ Target = (*session.Store)(nil)

type Service struct {
	store    preference.TemplateStore
	builtins []Template
	now      func() time.Time
	logger   *log.Logger
}

// NewService loads the embedded presets. store holds user templates.
func NewService(store preference.TemplateStore, logger *log.Logger, now func() time.Time) (*Service, error) {
	builtins, err := parseBuiltins(builtinYAML)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Discard()
	}
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:    store,
		builtins: builtins,
		now:      now,
		logger:   logger.WithComponent(log.ComponentTemplates),
	}, nil
}

// List returns built-ins first, then saved templates oldest first.
func (s *Service) List(ctx context.Context) ([]Template, error) {
	saved, err := s.store.ListTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list saved templates: %w", err)
	}
	out := append([]Template{}, s.builtins...)
	for _, st := range saved {
		cats, err := decodeCategories(st.Payload)
		if err != nil {
			s.logger.WarnContext(ctx, "Skipping unreadable template", "template_id", st.ID, log.FieldError, err)
			continue
		}
		out = append(out, Template{
			ID:          st.ID,
			Name:        st.Name,
			Description: st.Description,
			Categories:  cats,
		})
	}
	return out, nil
}

// Get finds a template by id, or by name when no id matches.
func (s *Service) Get(ctx context.Context, idOrName string) (Template, error) {
	all, err := s.List(ctx)
	if err != nil {
		return Template{}, err
	}
	for _, t := range all {
		if t.ID == idOrName {
			return t, nil
		}
	}
	for _, t := range all {
		if strings.EqualFold(t.Name, idOrName) {
			return t, nil
		}
	}
	return Template{}, fmt.Errorf("%w: %s", ErrNotFound, idOrName)
}

// Save stores the given categories as a new user template.
func (s *Service) Save(ctx context.Context, name string, period core.Period, cats []CategoryPreset) (Template, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Template{}, core.ErrEmptyName
	}
	if len(cats) == 0 {
		return Template{}, ErrNothingSelected
	}

	payload, err := encodeCategories(cats)
	if err != nil {
		return Template{}, fmt.Errorf("encode template: %w", err)
	}
	now := s.now()
	t := Template{
		ID:          fmt.Sprintf("custom_%d", now.UnixMilli()),
		Name:        name,
		Description: "Saved from " + period.Label(),
		Categories:  cats,
	}
	err = s.store.SaveTemplate(ctx, preference.SavedTemplate{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Payload:     payload,
		CreatedAt:   now,
	})
	if err != nil {
		return Template{}, fmt.Errorf("save template: %w", err)
	}
	s.logger.InfoContext(ctx, "Template saved", "template_id", t.ID, "categories", len(cats))
	return t, nil
}

// Delete removes a saved template. Built-ins are immutable.
func (s *Service) Delete(ctx context.Context, id string) error {
	for _, b := range s.builtins {
		if b.ID == id {
			return ErrBuiltIn
		}
	}
	if err := s.store.DeleteTemplate(ctx, id); err != nil {
		if errors.Is(err, preference.ErrTemplateNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return err
	}
	s.logger.InfoContext(ctx, "Template deleted", "template_id", id)
	return nil
}

// Apply creates every selected category in the target's active scope, then
// its subcategories concurrently. The target reloads once afterwards, even
// when a create fails part way. A selected name already present in the month
// fails the whole apply before anything is written.
func (s *Service) Apply(ctx context.Context, target Target, t Template, cats []CategoryPreset) error {
	if len(cats) == 0 {
		return ErrNothingSelected
	}
	existing := target.Snapshot().Categories
	seen := make(map[string]bool, len(cats))
	names := make([]string, len(cats))
	for i, c := range cats {
		if _, ok := existing[c.Name]; ok || seen[c.Name] {
			return fmt.Errorf("%w: %q", core.ErrDuplicateCategory, c.Name)
		}
		seen[c.Name] = true
		names[i] = c.Name
	}
	key := t.ID + ":" + strings.Join(names, ",")

	return target.Batch(ctx, events.KindApplyTemplate, key, func(ctx context.Context, scope session.Scope, api session.API) error {
		for _, c := range cats {
			created, err := api.CreateCategory(ctx, scope.BudgetID, scope.Period, core.CategoryInput{Name: c.Name, Budget: c.Budget})
			if err != nil {
				return fmt.Errorf("create category %q: %w", c.Name, err)
			}

			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(subcategoryConcurrency)
			for _, sub := range c.Subcategories {
				g.Go(func() error {
					_, err := api.CreateSubcategory(gctx, scope.BudgetID, core.SubcategoryInput{
						CategoryID: created.ID,
						Name:       sub.Name,
						Allotted:   sub.Allotted,
					})
					if err != nil {
						return fmt.Errorf("create subcategory %q: %w", sub.Name, err)
					}
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
		}
		s.logger.InfoContext(ctx, "Template applied",
			"template_id", t.ID,
			log.FieldBudgetID, scope.BudgetID,
			log.FieldYear, scope.Period.Year,
			log.FieldMonth, scope.Period.Month)
		return nil
	})
}
