package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"webgen_server/internal/types"
)

// MemoryStore keeps everything in process. Used when no database is configured.
type MemoryStore struct {
	mu          sync.RWMutex
	projects    map[string]*Project
	comparisons map[string]*types.ComparisonOutcome
	now         func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		projects:    make(map[string]*Project),
		comparisons: make(map[string]*types.ComparisonOutcome),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) SaveProject(_ context.Context, p *Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[p.ID] = p.clone()
	return nil
}

func (s *MemoryStore) GetProject(_ context.Context, id string) (*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p.clone(), nil
}

func (s *MemoryStore) ListProjects(_ context.Context, opts ListOptions) (*ProjectPage, error) {
	opts = opts.Normalize()

	s.mu.RLock()
	matched := make([]*Project, 0, len(s.projects))
	for _, p := range s.projects {
		if opts.UserID != "" && p.UserID != opts.UserID {
			continue
		}
		matched = append(matched, p.clone())
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	total := len(matched)
	start := min(opts.offset(), total)
	end := min(start+opts.PerPage, total)
	page := append(make([]*Project, 0, end-start), matched[start:end]...)
	return newPage(page, total, opts), nil
}

func (s *MemoryStore) DeleteProject(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[id]; !ok {
		return ErrNotFound
	}
	delete(s.projects, id)
	return nil
}

func (s *MemoryStore) UpdateProjectFiles(_ context.Context, id string, files types.FileBundle, meta *types.GenerationMetadata) (*Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, ErrNotFound
	}
	// replace rather than mutate; readers may hold clones of the old record
	next := p.clone()
	next.Files = FilesFromBundle(files)
	if meta != nil {
		m := *meta
		next.Metadata = &m
	}
	next.UpdatedAt = s.now()
	s.projects[id] = next
	return next.clone(), nil
}

func (s *MemoryStore) SaveComparison(_ context.Context, c *types.ComparisonOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comparisons[c.ComparisonID] = cloneComparison(c)
	return nil
}

func (s *MemoryStore) GetComparison(_ context.Context, id string) (*types.ComparisonOutcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.comparisons[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneComparison(c), nil
}

func cloneComparison(c *types.ComparisonOutcome) *types.ComparisonOutcome {
	out := *c
	if c.Results != nil {
		out.Results = make(map[string]*types.GenerationOutcome, len(c.Results))
		for provider, res := range c.Results {
			out.Results[provider] = cloneOutcome(res)
		}
	}
	return &out
}

func cloneOutcome(o *types.GenerationOutcome) *types.GenerationOutcome {
	if o == nil {
		return nil
	}
	out := *o
	if o.Files != nil {
		out.Files = make(types.FileBundle, len(o.Files))
		for name, content := range o.Files {
			out.Files[name] = content
		}
	}
	if o.Metadata != nil {
		m := *o.Metadata
		out.Metadata = &m
	}
	return &out
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
