[Complete JavaScript content here]

=== END FILES ===
`

const qualityDirective = "Remember: This needs to be PROFESSIONAL, MODERN, and BUSINESS-READY. Think Fortune 500 company quality."

// GetSystemPrompt is the system message sent with every generation request.
func GetSystemPrompt() string {
	return `You are a world-class web developer and designer with expertise in creating professional, modern websites.

Your specialties include:
- Modern responsive web design
- Professional UI/UX principles
- Clean, semantic HTML5
- Advanced CSS3 with modern layouts (Grid, Flexbox)
- Professional color schemes and typography
- Business-ready components and sections
- Performance optimization
- Accessibility best practices

When generating websites, create:
- Professional, business-grade designs
- Mobile-first responsive layouts
- Modern color palettes with proper contrast
- Clean typography with proper hierarchy
- Interactive elements and smooth animations
- Semantic HTML structure
- Optimized CSS with modern techniques
- Complete, ready-to-use websites

Always generate complete, production-ready code that looks professional and modern.`
}

// GetSiteGenerationPrompt merges the user's prompt with the requirements for
// siteType. It is pure and deterministic.
func GetSiteGenerationPrompt(userPrompt string, siteType SiteType) string {
	specific, ok := siteRequirements[siteType]
	if !ok {
		specific = siteRequirements[SiteLanding]
	}
	return fmt.Sprintf("\n%s\n\n%s\n\n%s%s\n\n%s\n", userPrompt, specific, baseRequirements, OutputFormatContract, qualityDirective)
}
