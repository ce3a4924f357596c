// Package search answers listing queries: location keyword matching, filter
// evaluation, ordering and pagination.
package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/nekruzvatanshoev/carrental/pkg/carrental/dal"
)

// Item is a listing together with its resolved pickup address.
type Item struct {
	dal.Listing
	Address Address
}

// Result is one page of a search.
type Result struct {
	Items      []Item
	Page       int
	Limit      int
	Count      int
	TotalPages int
	Mode       Mode
	Keywords   Keywords
	// Malformed counts unparsable pickups among Items.
	Malformed int
}

// Service runs searches against a session source.
type Service struct {
	sessions dal.Sessions
	engine   *Engine
	limits   Limits
}

// NewService returns a Service. A zero Limits uses DefaultLimits.
func NewService(sessions dal.Sessions, engine *Engine, limits Limits) *Service {
	if limits == (Limits{}) {
		limits = DefaultLimits
	}
	return &Service{sessions: sessions, engine: engine, limits: limits}
}

// Limits returns the configured page size bounds.
func (s *Service) Limits() Limits {
	return s.limits
}

// Search returns page p of the listings matching r.
func (s *Service) Search(ctx context.Context, r FilterRequest, p Page) (*Result, error) {
	if err := s.limits.Check(p); err != nil {
		return nil, err
	}
	r = r.Normalize()
	mode, kw := s.engine.Plan(r)
	res := &Result{Page: p.Number, Limit: p.Limit, Mode: mode, Keywords: kw}

	err := s.sessions.WithSession(ctx, func(repo dal.Repository) error {
		if mode == ModeMemory {
			return s.searchMemory(repo, r, p, res)
		}
		return s.searchPushdown(repo, r, p, res)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRepository, err)
	}
	res.TotalPages = TotalPages(res.Count, p.Limit)
	return res, nil
}

func (s *Service) searchPushdown(repo dal.Repository, r FilterRequest, p Page, res *Result) error {
	c := r.Criteria()
	n, err := repo.Count(c)
	if err != nil {
		return err
	}
	res.Count = int(n)
	if n == 0 {
		return nil
	}
	listings, err := repo.Page(c, r.Sort, p.Offset(), p.Limit)
	if err != nil {
		return err
	}
	res.Items = resolve(listings, res)
	return nil
}

func (s *Service) searchMemory(repo dal.Repository, r FilterRequest, p Page, res *Result) error {
	all, err := repo.All()
	if err != nil {
		return err
	}
	f := s.engine.Filter(all, r)
	page, count, _ := SortAndPage(f.Listings, r.Sort, p)
	res.Count = count
	res.Items = resolve(page, res)
	return nil
}

// resolve attaches addresses and counts malformed pickups on res.
func resolve(ls []dal.Listing, res *Result) []Item {
	out := make([]Item, len(ls))
	for i, l := range ls {
		out[i] = Item{Listing: l, Address: ResolveAddress(l.Price)}
		if out[i].Address.Malformed {
			res.Malformed++
		}
	}
	return out
}

// Listing returns the first listing of car carID.
func (s *Service) Listing(ctx context.Context, carID uint) (*Item, error) {
	var item *Item
	err := s.sessions.WithSession(ctx, func(repo dal.Repository) error {
		l, err := repo.FirstByCarID(carID)
		if err != nil {
			return err
		}
		item = &Item{Listing: l, Address: ResolveAddress(l.Price)}
		return nil
	})
	switch {
	case errors.Is(err, dal.ErrNotFound):
		return nil, fmt.Errorf("car %d: %w", carID, ErrNotFound)
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrRepository, err)
	}
	return item, nil
}
