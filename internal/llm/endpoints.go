package llm

import (
	"fmt"
	"net/url"
	"strings"
)

// WireProtocol is the API dialect a self-hosted server speaks.
type WireProtocol string

const (
	NativeGenerate WireProtocol = "native_generate"
	OpenAIChat     WireProtocol = "openai_chat"
)

// BackendEndpoint is a candidate self-hosted server. Priority is list order.
type BackendEndpoint struct {
	DisplayName string       `json:"display_name"`
	BaseURL     string       `json:"base_url"`
	Protocol    WireProtocol `json:"wire_protocol"`
}

// DefaultEndpoints lists the local servers probed when none are configured.
func DefaultEndpoints() []BackendEndpoint {
	return []BackendEndpoint{
		{DisplayName: "Ollama", BaseURL: "http://localhost:11434", Protocol: NativeGenerate},
		{DisplayName: "LM Studio", BaseURL: "http://localhost:1234", Protocol: OpenAIChat},
		{DisplayName: "LocalAI", BaseURL: "http://localhost:8080", Protocol: OpenAIChat},
		{DisplayName: "Text Generation WebUI", BaseURL: "http://localhost:5000", Protocol: OpenAIChat},
	}
}

// SupportedPlatforms names the local servers the service knows how to talk to.
func SupportedPlatforms() []string {
	eps := DefaultEndpoints()
	names := make([]string, 0, len(eps))
	for _, ep := range eps {
		names = append(names, ep.DisplayName)
	}
	return names
}

// ParseEndpoints reads a comma-separated list of name=url=protocol triples.
// An empty spec yields DefaultEndpoints.
func ParseEndpoints(spec string) ([]BackendEndpoint, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return DefaultEndpoints(), nil
	}
	var out []BackendEndpoint
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, "=")
		if len(parts) != 3 {
			return nil, fmt.Errorf("endpoint %q: want name=url=protocol", entry)
		}
		name, rawURL, proto := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), WireProtocol(strings.TrimSpace(parts[2]))
		if proto != NativeGenerate && proto != OpenAIChat {
			return nil, fmt.Errorf("endpoint %q: unknown protocol %q", name, proto)
		}
		u, err := url.Parse(rawURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("endpoint %q: invalid url %q", name, rawURL)
		}
		out = append(out, BackendEndpoint{
			DisplayName: name,
			BaseURL:     strings.TrimRight(rawURL, "/"),
			Protocol:    proto,
		})
	}
	if len(out) == 0 {
		return DefaultEndpoints(), nil
	}
	return out, nil
}
