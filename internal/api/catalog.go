package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"webgen_server/internal/llm"
)

type websiteType struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Icon        string   `json:"icon"`
	Features    []string `json:"features"`
}

var websiteTypes = []websiteType{
	{ID: "landing", Name: "Landing Page", Description: "Professional landing page with hero, features, testimonials, and CTA", Icon: "🚀",
		Features: []string{"Hero Section", "Features Grid", "Testimonials", "Contact Form"}},
	{ID: "business", Name: "Business Website", Description: "Corporate website with services, team, and company information", Icon: "🏢",
		Features: []string{"Corporate Header", "Services", "Team Section", "About Us"}},
	{ID: "portfolio", Name: "Portfolio", Description: "Personal or professional portfolio showcase", Icon: "🎨",
		Features: []string{"Work Gallery", "Skills", "Bio", "Contact"}},
	{ID: "ecommerce", Name: "E-Commerce", Description: "Online store with products, categories, and shopping features", Icon: "🛒",
		Features: []string{"Product Grid", "Categories", "Cart", "Checkout"}},
	{ID: "blog", Name: "Blog", Description: "Professional blog with posts, categories, and subscription", Icon: "📝",
		Features: []string{"Post List", "Categories", "Author Bio", "Newsletter"}},
}

type templateCategory struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Icon        string   `json:"icon"`
	Templates   []string `json:"templates"`
}

var templateCategories = []templateCategory{
	{ID: "business", Name: "Business & Corporate", Description: "Professional business websites", Icon: "🏢",
		Templates: []string{"Corporate Landing", "Consulting Firm", "Agency Portfolio", "SaaS Product", "Financial Services", "Law Firm"}},
	{ID: "creative", Name: "Creative & Portfolio", Description: "Showcase your creative work", Icon: "🎨",
		Templates: []string{"Designer Portfolio", "Photography", "Artist Gallery", "Creative Agency", "Freelancer", "Architecture"}},
	{ID: "ecommerce", Name: "E-Commerce & Retail", Description: "Online stores and shops", Icon: "🛒",
		Templates: []string{"Fashion Store", "Electronics", "Handmade Crafts", "Digital Products", "Subscription Box", "Marketplace"}},
	{ID: "personal", Name: "Personal & Blog", Description: "Personal websites and blogs", Icon: "👤",
		Templates: []string{"Personal Blog", "Travel Blog", "Food Blog", "Tech Blog", "Lifestyle", "Resume Site"}},
	{ID: "specialized", Name: "Specialized Industries", Description: "Industry-specific websites", Icon: "🏥",
		Templates: []string{"Restaurant", "Medical Practice", "Real Estate", "Fitness Studio", "Education", "Non-Profit"}},
}

type providerInfo struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Icon        string      `json:"icon"`
	Model       string      `json:"model"`
	Models      []modelInfo `json:"models"`
	Strengths   []string    `json:"strengths"`
	Speed       string      `json:"speed"`
	Quality     string      `json:"quality"`
}

type modelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	TokenLimit  int    `json:"token_limit"`
	Default     bool   `json:"default"`
}

var providerBlurbs = map[llm.BackendKind]providerInfo{
	llm.HostedA: {Description: "Latest and most advanced model for creative web design", Icon: "🤖",
		Strengths: []string{"Creative Design", "Modern Layouts", "Interactive Elements"}, Speed: "fast", Quality: "excellent"},
	llm.HostedB: {Description: "Powerful multimodal AI for sophisticated web development", Icon: "💎",
		Strengths: []string{"Technical Excellence", "Responsive Design", "Performance"}, Speed: "very-fast", Quality: "excellent"},
	llm.SelfHosted: {Description: "Models served by a local Ollama, LM Studio, LocalAI or Text Generation WebUI instance", Icon: "🖥️",
		Strengths: []string{"Privacy", "No API Costs", "Offline Use"}, Speed: "hardware-dependent", Quality: "good"},
}

func (h *APIHandler) providers() []providerInfo {
	var out []providerInfo
	for _, kind := range []llm.BackendKind{llm.HostedA, llm.HostedB, llm.SelfHosted} {
		def, ok := h.registry.Default(kind)
		if !ok {
			continue
		}
		info := providerBlurbs[kind]
		info.ID = kind.Label()
		info.Name = def.DisplayName
		info.Model = def.Name
		for _, d := range h.registry.ByKind(kind) {
			info.Models = append(info.Models, modelInfo{Name: d.Name, DisplayName: d.DisplayName, TokenLimit: d.TokenLimit, Default: d.Default})
		}
		out = append(out, info)
	}
	return out
}

// GET /api/website-types
func (h *APIHandler) WebsiteTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"types": websiteTypes})
}

// GET /api/ai-providers
func (h *APIHandler) AIProviders(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"providers": h.providers(),
		"comparison_mode": gin.H{
			"enabled":     true,
			"description": "Generate with both providers and compare results",
			"benefits":    []string{"See different approaches", "Choose best design", "Higher success rate"},
		},
	})
}

// GET /api/templates
func (h *APIHandler) Templates(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": templateCategories})
}

// GET /api/
func (h *APIHandler) Banner(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Professional Website Generator API",
		"version": "2.0.0",
		"features": []string{
			"Multi-AI Provider Support",
			"Local Model Support",
			"Professional Templates",
			"One-Click Generation",
			"Provider Comparison",
			"Project Management",
		},
	})
}
