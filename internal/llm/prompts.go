package llm

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
)

//go:embed prompts/suggest_system.txt
var suggestSystemPrompt string

const responseShape = `{
  "auto_filled_data": {
    // key-value pairs for each placeholder
  },
  "placeholder_positions": {
    // detected positions for each placeholder
  },
  "font_detection": {
    "font_name": "Times New Roman",
    "font_size": 11
  }
}`

// SystemPrompt returns the fixed instruction sent with every suggestion request.
func SystemPrompt() string {
	return strings.TrimSpace(suggestSystemPrompt)
}

// UserPrompt describes the fields, the document and any user-supplied data.
func UserPrompt(input SuggestInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "I need to fill in a PDF template with the following placeholders: %s.\n\n", strings.Join(input.Fields, ", "))
	fmt.Fprintf(&b, "The document context is: %s\n\n", input.Context)
	if len(input.UserData) > 0 {
		data, _ := json.Marshal(input.UserData)
		fmt.Fprintf(&b, "I have provided the following information: %s\n\n", data)
	} else {
		b.WriteString("I haven't provided any specific information, please suggest appropriate values.\n\n")
	}
	b.WriteString("Please analyze the context and provide values for each placeholder. Return the response in this JSON format:\n")
	b.WriteString(responseShape)
	return b.String()
}

// BuildContext assembles the short document description sent as context.
func BuildContext(templateName string, fields []string) string {
	return fmt.Sprintf("This is a %s template with placeholders for %s.", strings.TrimSpace(templateName), strings.Join(fields, ", "))
}
