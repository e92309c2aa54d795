package composer

import (
	"strings"
	"text/template"

	"github.com/harunnryd/kotoba/internal/errors"
)

// SystemMessagePolicy renders the system prompt from the current context string.
type SystemMessagePolicy func(contextString string) string

const fence = "```"

// DefaultSystemMessage is the policy used when none is configured. The
// context string is embedded verbatim inside a fenced block.
func DefaultSystemMessage(contextString string) string {
	return `
Please act as a efficient, competent, and conscientious professional assistant.
You help the user achieve their goals, and you do so in a way that is as efficient as possible, without unnecessary fluff, but also without sacrificing professionalism.
Always be polite and respectful, and prefer brevity over verbosity.

The user has provided you with the following context:
` + fence + `
` + contextString + `
` + fence + `

They have also provided you with functions you can call to initiate actions on their behalf, or functions you can call to receive more information.

Please assist them as best you can.
If you are not sure how to proceed to best fulfill their requests, please ask them for more information.
`
}

// TemplatePolicy builds a policy from a text/template body. The template
// sees the context string as {{.Context}}.
func TemplatePolicy(text string) (SystemMessagePolicy, error) {
	tmpl, err := template.New("system").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, errors.WrapWithCategory(err, "parse system template", errors.ErrInvalidInput)
	}

	// An execution error yields the raw template text.
	return func(contextString string) string {
		var b strings.Builder
		if err := tmpl.Execute(&b, struct{ Context string }{Context: contextString}); err != nil {
			return text
		}
		return b.String()
	}, nil
}
