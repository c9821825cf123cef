package prompts

import (
	"fmt"
	"strings"
)

// SiteType selects the requirements block merged into a generation prompt.
type SiteType string

const (
	SiteLanding   SiteType = "landing"
	SiteBusiness  SiteType = "business"
	SitePortfolio SiteType = "portfolio"
	SiteEcommerce SiteType = "ecommerce"
	SiteBlog      SiteType = "blog"
)

// SiteTypes lists every known site type in display order.
var SiteTypes = []SiteType{SiteLanding, SiteBusiness, SitePortfolio, SiteEcommerce, SiteBlog}

// ParseSiteType never fails: unknown values become SiteLanding.
func ParseSiteType(s string) SiteType {
	st := SiteType(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := siteRequirements[st]; ok {
		return st
	}
	return SiteLanding
}

var siteRequirements = map[SiteType]string{
	SiteLanding: `
Create a professional LANDING PAGE with:
- Hero section with compelling headline and CTA
- Features/benefits section
- Testimonials/social proof
- About section
- Contact/CTA section
- Professional footer
`,
	SiteBusiness: `
Create a professional BUSINESS WEBSITE with:
- Corporate header with navigation
- Hero banner with company value proposition
- Services/products section
- About us section
- Team section
- Contact information
- Professional corporate footer
`,
	SitePortfolio: `
Create a professional PORTFOLIO WEBSITE with:
- Personal/professional header
- Hero section with introduction
- Portfolio/work showcase gallery
- Skills and expertise section
- About/bio section
- Contact form and information
`,
	SiteEcommerce: `
Create a professional E-COMMERCE WEBSITE with:
- Product header with cart/search
- Hero section with featured products
- Product categories grid
- Featured/bestseller products
- Customer testimonials
- Footer with links and info
`,
	SiteBlog: `
Create a professional BLOG WEBSITE with:
- Blog header with navigation
- Hero section with latest post
- Recent posts grid/list
- Categories and tags
- About the author section
- Subscription/newsletter signup
`,
}

const baseRequirements = `
IMPORTANT REQUIREMENTS:
1. Generate COMPLETE, PROFESSIONAL website files
2. Create separate HTML, CSS, and JS files
3. Use modern, responsive design principles
4. Include professional color schemes and typography
5. Make it mobile-first responsive
6. Add smooth animations and interactions
7. Ensure accessibility (ARIA labels, semantic HTML)
8. Use modern CSS Grid and Flexbox
9. Include proper meta tags for SEO
10. Make it production-ready
`

// OutputFormatContract is the exact delimiter grammar the parser reads.
const OutputFormatContract = `
STRUCTURE YOUR RESPONSE EXACTLY AS: