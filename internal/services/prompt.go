package services

import (
	"strings"
	"unicode/utf8"
)

const (
	// SystemPrompt opens every prompt. It asks the model to answer in the user's language.
	SystemPrompt = "You are HariHar (हरिहर), an intelligent and culturally aware Indian AI assistant. " +
		"You are built on BharatGen's Param-1 foundation model. " +
		"You understand and respond fluently in Hindi, English, Hinglish and other Indian languages. " +
		"Be helpful, honest, concise and respectful of Indian culture and values. " +
		"If asked in Hindi, reply in Hindi. If asked in English, reply in English. " +
		"If asked in Hinglish, reply in Hinglish. "

	// AssistantMarker introduces the assistant's turn.
	AssistantMarker = "HariHar:"

	// MaxHistoryTurns is how many trailing history entries are kept in the prompt.
	MaxHistoryTurns = 6
)

// BuildPrompt assembles the preamble, the last MaxHistoryTurns history entries, the user turn and
// the assistant marker.
func BuildPrompt(history []string, message string) string {
	if len(history) > MaxHistoryTurns {
		history = history[len(history)-MaxHistoryTurns:]
	}

	var sb strings.Builder
	sb.WriteString(SystemPrompt)
	sb.WriteString("\n")
	for _, turn := range history {
		sb.WriteString(turn)
		sb.WriteString("\n")
	}
	sb.WriteString("User: ")
	sb.WriteString(message)
	sb.WriteString("\n")
	sb.WriteString(AssistantMarker)
	return sb.String()
}

// ExtractReply recovers the assistant turn from text decoded from prompt plus continuation.
// It takes what follows the last AssistantMarker; without a marker it skips as many characters
// as the prompt has. A marker inside the user message or the model's own output moves the cut.
func ExtractReply(decoded, prompt string) string {
	if i := strings.LastIndex(decoded, AssistantMarker); i >= 0 {
		return strings.TrimSpace(decoded[i+len(AssistantMarker):])
	}

	runes := []rune(decoded)
	n := utf8.RuneCountInString(prompt)
	if len(runes) <= n {
		return ""
	}
	return strings.TrimSpace(string(runes[n:]))
}
