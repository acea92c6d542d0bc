package service

import (
	"context"
	"strings"

	"driverops/internal/model"
	"driverops/internal/state"
)

// CatalogService manages cost categories and revenue-source apps
type CatalogService struct {
	state *state.Store
	clock Clock
}

// NewCatalogService creates a new catalog service
func NewCatalogService(st *state.Store, clock Clock) *CatalogService {
	return &CatalogService{state: st, clock: clock}
}

// Categories returns all categories
func (s *CatalogService) Categories() []model.Category {
	return s.state.Categories()
}

// CreateCategory adds a category. Names are unique case-insensitively among active categories.
func (s *CatalogService) CreateCategory(ctx context.Context, name string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalidf("category name is required")
	}

	c := &model.Category{ID: model.NewID(), Name: name, Active: true, CreatedAt: s.clock.Now()}
	err := s.state.Apply(ctx, func(tx *state.Tx) error {
		for _, existing := range s.state.Categories() {
			if existing.Active && strings.EqualFold(existing.Name, name) {
				return ErrDuplicateName
			}
		}
		tx.Insert(c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// DeactivateCategory hides a category from new entries; ledger rows keep their snapshot
func (s *CatalogService) DeactivateCategory(ctx context.Context, id string) error {
	return s.state.Apply(ctx, func(tx *state.Tx) error {
		c, ok := s.state.Category(id)
		if !ok {
			return notFound("category", id)
		}
		c.Active = false
		tx.Update(&c, "active")
		return nil
	})
}

// Apps returns all revenue sources
func (s *CatalogService) Apps() []model.App {
	return s.state.Apps()
}

// CreateApp adds a revenue source
func (s *CatalogService) CreateApp(ctx context.Context, name string) (*model.App, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalidf("app name is required")
	}

	a := &model.App{ID: model.NewID(), Name: name, Active: true, CreatedAt: s.clock.Now()}
	err := s.state.Apply(ctx, func(tx *state.Tx) error {
		for _, existing := range s.state.Apps() {
			if existing.Active && strings.EqualFold(existing.Name, name) {
				return ErrDuplicateName
			}
		}
		tx.Insert(a)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// DeactivateApp stops an app from being selected for new earnings
func (s *CatalogService) DeactivateApp(ctx context.Context, id string) error {
	return s.state.Apply(ctx, func(tx *state.Tx) error {
		a, ok := s.state.App(id)
		if !ok {
			return notFound("app", id)
		}
		a.Active = false
		tx.Update(&a, "active")
		return nil
	})
}

// FirstActiveApp returns the first active app by name
func (s *CatalogService) FirstActiveApp() (model.App, bool) {
	for _, a := range s.state.Apps() {
		if a.Active {
			return a, true
		}
	}
	return model.App{}, false
}
