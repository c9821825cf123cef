package prompts

import "strings"

// Suggestion is a catalogued enhancement a user can apply in one click.
type Suggestion struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Impact      string `json:"impact"`
	Icon        string `json:"icon"`
}

// Instruction converts the suggestion into an enhancement instruction.
func (s Suggestion) Instruction() Instruction {
	return Instruction{
		Kind:        KindEnhancement,
		Type:        s.Type,
		Title:       s.Title,
		Description: s.Description,
		Impact:      s.Impact,
		Icon:        s.Icon,
	}
}

type suggestionRule struct {
	suggestion Suggestion
	// applies reports whether the lower-cased page content lacks what the
	// suggestion adds.
	applies func(content string) bool
}

func missingAll(markers ...string) func(string) bool {
	return func(content string) bool {
		for _, m := range markers {
			if strings.Contains(content, m) {
				return false
			}
		}
		return true
	}
}

var suggestionCatalogue = []suggestionRule{
	{
		suggestion: Suggestion{Type: "visual", Title: "Modernize Color Palette", Description: "Apply a modern, professional color palette with proper contrast to improve readability and visual impact", Impact: "high", Icon: "🎨"},
		applies:    func(string) bool { return true },
	},
	{
		suggestion: Suggestion{Type: "responsive", Title: "Improve Mobile Layout", Description: "Add responsive breakpoints and a mobile-first layout so the page works on every screen size", Impact: "high", Icon: "📱"},
		applies:    missingAll("@media", "name=\"viewport\""),
	},
	{
		suggestion: Suggestion{Type: "content", Title: "Add Social Proof", Description: "Add a testimonials section with customer reviews to build trust", Impact: "medium", Icon: "💬"},
		applies:    missingAll("testimonial", "review"),
	},
	{
		suggestion: Suggestion{Type: "conversion", Title: "Add Contact Form", Description: "Add a contact form with validation and a prominent call to action", Impact: "medium", Icon: "📬"},
		applies:    missingAll("<form"),
	},
	{
		suggestion: Suggestion{Type: "accessibility", Title: "Improve Accessibility", Description: "Add ARIA labels, alt text and semantic landmarks for screen readers", Impact: "medium", Icon: "♿"},
		applies:    missingAll("aria-", "<main", "<nav"),
	},
	{
		suggestion: Suggestion{Type: "seo", Title: "Add SEO Meta Tags", Description: "Add a meta description, Open Graph tags and a descriptive title", Impact: "medium", Icon: "🔍"},
		applies:    missingAll("name=\"description\"", "og:title"),
	},
	{
		suggestion: Suggestion{Type: "interactivity", Title: "Add Smooth Animations", Description: "Add subtle transitions and scroll animations to interactive elements", Impact: "low", Icon: "✨"},
		applies:    missingAll("transition", "animation", "@keyframes"),
	},
}

// Suggest returns the catalogued suggestions relevant to content, in
// catalogue order. The result is never empty.
func Suggest(content string) []Suggestion {
	lower := strings.ToLower(content)
	var out []Suggestion
	for _, rule := range suggestionCatalogue {
		if rule.applies(lower) {
			out = append(out, rule.suggestion)
		}
	}
	return out
}
