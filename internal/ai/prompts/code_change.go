package prompts

import (
	"fmt"
	"strings"
)

// InstructionKind selects how an enhancement instruction is phrased.
type InstructionKind string

const (
	KindEnhancement     InstructionKind = "enhancement"
	KindCustomPrompt    InstructionKind = "custom_prompt"
	KindChatInteractive InstructionKind = "chat_interactive"
)

// ParseInstructionKind defaults to KindEnhancement for unknown values.
func ParseInstructionKind(s string) InstructionKind {
	switch k := InstructionKind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindCustomPrompt, KindChatInteractive:
		return k
	default:
		return KindEnhancement
	}
}

// Instruction carries the fields of every instruction kind; each kind reads
// only its own.
type Instruction struct {
	Kind InstructionKind `json:"-"`

	// enhancement
	Type   string `json:"type,omitempty"`
	Title  string `json:"title,omitempty"`
	Impact string `json:"impact,omitempty"`
	Icon   string `json:"icon,omitempty"`

	// custom_prompt
	Prompt string `json:"prompt,omitempty"`

	// chat_interactive
	Message string `json:"message,omitempty"`

	Description string `json:"description,omitempty"`
}

// Summary is a one-line description used as the stored prompt.
func (in Instruction) Summary() string {
	switch in.Kind {
	case KindCustomPrompt:
		return firstNonEmpty(in.Prompt, in.Description)
	case KindChatInteractive:
		return firstNonEmpty(in.Message, in.Description)
	default:
		return firstNonEmpty(in.Title, in.Description, in.Type)
	}
}

// GetSiteCodeChangePrompt builds the prompt and system message for modifying
// an existing site. currentFiles must already be in the delimited grammar.
func GetSiteCodeChangePrompt(in Instruction, currentFiles string) (string, string) {
	var request string
	switch in.Kind {
	case KindCustomPrompt:
		request = fmt.Sprintf(`The user wrote the following instruction for their website:
---
%s
---
%s`, in.Prompt, optionalLine("Goal: ", in.Description))
	case KindChatInteractive:
		request = fmt.Sprintf(`The user is chatting with you about their website and said:
"%s"
%s
Interpret the message as a change request and apply it.`, in.Message, optionalLine("Context: ", in.Description))
	default:
		request = fmt.Sprintf(`Apply this improvement to the website:
- Category: %s
- Title: %s
- Description: %s
- Expected impact: %s
`, firstNonEmpty(in.Type, "general"), in.Title, in.Description, firstNonEmpty(in.Impact, "medium"))
	}

	prompt := fmt.Sprintf(`
CURRENT WEBSITE FILES:
%s
%s
Keep every section and behaviour that the change does not touch. Return the COMPLETE updated content of every file, not a diff.
%s
`, currentFiles, request, OutputFormatContract)

	systemPrompt := `You are a senior web developer improving an existing, already working website.
You make the requested change precisely, keep the site's structure and content intact, and always return complete files.`
	return prompt, systemPrompt
}

func optionalLine(label, value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	return label + value + "\n"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
