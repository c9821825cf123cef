// Package store persists generated projects and provider comparisons.
package store

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"webgen_server/internal/types"
	"webgen_server/internal/utils"
)

var ErrNotFound = errors.New("not found")

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Project is a stored, generated website.
type Project struct {
	ID          string                    `json:"id"`
	Name        string                    `json:"name"`
	Description string                    `json:"description"`
	Files       []types.GeneratedFile     `json:"files"`
	Metadata    *types.GenerationMetadata `json:"metadata,omitempty"`
	CreatedAt   time.Time                 `json:"created_at"`
	UpdatedAt   time.Time                 `json:"updated_at"`
	UserID      string                    `json:"user_id,omitempty"`
	IsPublic    bool                      `json:"is_public"`
	Tags        []string                  `json:"tags"`
}

// Bundle returns the project's files keyed by filename.
func (p *Project) Bundle() types.FileBundle {
	b := make(types.FileBundle, len(p.Files))
	for _, f := range p.Files {
		b[f.Filename] = f.Content
	}
	return b
}

func (p *Project) clone() *Project {
	c := *p
	c.Files = append([]types.GeneratedFile(nil), p.Files...)
	c.Tags = append([]string(nil), p.Tags...)
	if p.Metadata != nil {
		m := *p.Metadata
		c.Metadata = &m
	}
	return &c
}

// NewProject builds the record for a successful outcome. The outcome's
// session id becomes the project id.
func NewProject(outcome *types.GenerationOutcome, userID string, now time.Time) *Project {
	id := outcome.ProjectID
	if id == "" {
		id = outcome.SessionID
	}
	var description string
	if outcome.Metadata != nil {
		description = outcome.Metadata.Prompt
	}
	return &Project{
		ID:          id,
		Name:        "Generated Website - " + now.Format("2006-01-02 15:04"),
		Description: description,
		Files:       FilesFromBundle(outcome.Files),
		Metadata:    outcome.Metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
		UserID:      userID,
		Tags:        []string{outcome.WebsiteType, outcome.Provider},
	}
}

// FilesFromBundle converts a bundle into records sorted by filename.
func FilesFromBundle(b types.FileBundle) []types.GeneratedFile {
	files := make([]types.GeneratedFile, 0, len(b))
	for name, content := range b {
		files = append(files, types.GeneratedFile{
			Filename: name,
			Content:  content,
			FileType: utils.DetermineFileType(name),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Filename < files[j].Filename })
	return files
}

// ListOptions selects one page of projects, optionally for one owner.
type ListOptions struct {
	Page    int
	PerPage int
	UserID  string
}

// Normalize clamps Page to at least 1 and PerPage to [1, MaxPerPage].
func (o ListOptions) Normalize() ListOptions {
	if o.Page < 1 {
		o.Page = 1
	}
	switch {
	case o.PerPage < 1:
		o.PerPage = DefaultPerPage
	case o.PerPage > MaxPerPage:
		o.PerPage = MaxPerPage
	}
	return o
}

func (o ListOptions) offset() int { return (o.Page - 1) * o.PerPage }

// ProjectPage is one page of a newest-first listing.
type ProjectPage struct {
	Projects []*Project `json:"projects"`
	Total    int        `json:"total"`
	Page     int        `json:"page"`
	PerPage  int        `json:"per_page"`
	Pages    int        `json:"pages"`
}

func newPage(projects []*Project, total int, opts ListOptions) *ProjectPage {
	if projects == nil {
		projects = []*Project{}
	}
	return &ProjectPage{
		Projects: projects,
		Total:    total,
		Page:     opts.Page,
		PerPage:  opts.PerPage,
		Pages:    int(math.Ceil(float64(total) / float64(opts.PerPage))),
	}
}

// Store is the persistence collaborator consumed by the HTTP layer.
type Store interface {
	SaveProject(ctx context.Context, p *Project) error
	GetProject(ctx context.Context, id string) (*Project, error)
	ListProjects(ctx context.Context, opts ListOptions) (*ProjectPage, error)
	// DeleteProject returns ErrNotFound when id is unknown.
	DeleteProject(ctx context.Context, id string) error
	UpdateProjectFiles(ctx context.Context, id string, files types.FileBundle, meta *types.GenerationMetadata) (*Project, error)

	SaveComparison(ctx context.Context, c *types.ComparisonOutcome) error
	GetComparison(ctx context.Context, id string) (*types.ComparisonOutcome, error)

	Ping(ctx context.Context) error
	Close() error
}
