package types

import "time"

// GeneratedFile is a single stored website file.
type GeneratedFile struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
	FileType string `json:"file_type"` // extension without the dot, e.g. "html", "css"
}

// FileBundle maps a relative filename to its raw content.
type FileBundle map[string]string

// Names returns the bundle's filenames in no particular order.
func (b FileBundle) Names() []string {
	names := make([]string, 0, len(b))
	for name := range b {
		names = append(names, name)
	}
	return names
}

// GenerationMetadata describes how a bundle was produced.
type GenerationMetadata struct {
	GeneratedAt    time.Time `json:"generated_at"`
	Prompt         string    `json:"prompt"`
	EnhancedPrompt string    `json:"enhanced_prompt"`
	Provider       string    `json:"provider"`
	Model          string    `json:"model"`
	PhysicalModel  string    `json:"physical_model,omitempty"`
	Endpoint       string    `json:"endpoint,omitempty"`
	WebsiteType    string    `json:"website_type"`
	DurationMS     int64     `json:"duration_ms"`
}

// GenerationOutcome is the terminal value of a single generation call.
// Exactly one of Files or Error is meaningful, selected by Success.
type GenerationOutcome struct {
	Success     bool                `json:"success"`
	ProjectID   string              `json:"project_id,omitempty"`
	SessionID   string              `json:"session_id,omitempty"`
	Files       FileBundle          `json:"files,omitempty"`
	Metadata    *GenerationMetadata `json:"metadata,omitempty"`
	Error       string              `json:"error,omitempty"`
	ErrorKind   string              `json:"error_kind,omitempty"`
	Provider    string              `json:"provider,omitempty"`
	Model       string              `json:"model,omitempty"`
	WebsiteType string              `json:"website_type,omitempty"`
	StartedAt   time.Time           `json:"started_at"`
	FinishedAt  time.Time           `json:"finished_at"`
}

// ComparisonOutcome joins two independent generation calls.
// Success reports whether the join completed, not whether either side succeeded.
type ComparisonOutcome struct {
	Success        bool                          `json:"success"`
	ComparisonID   string                        `json:"comparison_id"`
	OriginalPrompt string                        `json:"original_prompt"`
	WebsiteType    string                        `json:"website_type"`
	Results        map[string]*GenerationOutcome `json:"results"`
	GeneratedAt    time.Time                     `json:"generated_at"`
	Error          string                        `json:"error,omitempty"`
}
