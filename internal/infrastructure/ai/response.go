package ai

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/doeshing/askai-go/internal/domain"
)

var codeBlockPattern = regexp.MustCompile("```(?:bash|sh)?\\n(.*?)\\n```")

// refusalPhrases mark replies that explain instead of answering.
var refusalPhrases = []string{
	"i am unable to",
	"i cannot",
	"i can't",
	"i will try to find",
	"i'm sorry",
	"as an ai",
	"i don't have the ability",
}

var explanationPrefixes = []string{
	"Here is the command:",
	"The command is:",
	"You can use:",
	"Try this:",
	"Run this:",
	"Execute:",
	"Command:",
}

// ProcessResponse reduces raw generator output to a single command line.
// Refusals and empty output wrap domain.ErrGenerationFailed.
func ProcessResponse(raw string) (string, error) {
	command := raw
	lowered := strings.ToLower(command)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lowered, phrase) {
			return "", fmt.Errorf("%w: generator returned an explanation instead of a command: %s", domain.ErrGenerationFailed, strings.TrimSpace(raw))
		}
	}

	if strings.Contains(command, "```") {
		if m := codeBlockPattern.FindStringSubmatch(command); m != nil {
			command = m[1]
		} else {
			command = strings.NewReplacer("```bash", "", "```sh", "", "```", "").Replace(command)
		}
	}
	command = strings.TrimSpace(command)

	for _, prefix := range explanationPrefixes {
		if len(command) >= len(prefix) && strings.EqualFold(command[:len(prefix)], prefix) {
			command = strings.TrimSpace(command[len(prefix):])
		}
	}

	var lines []string
	for _, line := range strings.Split(command, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	switch {
	case len(lines) == 0:
		command = ""
	case len(lines) > 1 && (strings.HasSuffix(lines[0], ":") || len(lines[0]) > 50):
		command = lines[1]
	default:
		command = lines[0]
	}

	if command == "" {
		return "", fmt.Errorf("%w: generator returned an empty command", domain.ErrGenerationFailed)
	}
	return command, nil
}
