package prompts

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/nikolalohinski/gonja"
	"github.com/nikolalohinski/gonja/exec"
)

// FormatPrompter is implemented by prompt templates.
type FormatPrompter interface {
	// Format renders the prompt with the given input values.
	Format(values map[string]any) (string, error)
	// GetInputVariables returns the variables the template expects.
	GetInputVariables() []string
}

// PromptTemplate is a Jinja-style prompt template.
type PromptTemplate struct {
	template       string
	inputVariables []string
	tpl            *exec.Template
}

var _ FormatPrompter = (*PromptTemplate)(nil)

// NewPromptTemplate creates a prompt template from the given source.
// The template is parsed eagerly so malformed templates fail at
// construction, not at query time.
func NewPromptTemplate(template string, inputVariables []string) (*PromptTemplate, error) {
	// The gonja parser does not terminate on an unclosed delimiter,
	// so reject unbalanced templates before handing them over.
	if err := checkDelimiters(template); err != nil {
		return nil, err
	}
	tpl, err := gonja.FromString(template)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse prompt template")
	}
	return &PromptTemplate{
		template:       template,
		inputVariables: inputVariables,
		tpl:            tpl,
	}, nil
}

// MustNewPromptTemplate is like NewPromptTemplate but panics on error.
// For use with static, package-level templates.
func MustNewPromptTemplate(template string, inputVariables []string) *PromptTemplate {
	t, err := NewPromptTemplate(template, inputVariables)
	if err != nil {
		panic(err)
	}
	return t
}

func checkDelimiters(template string) error {
	pairs := [][2]string{
		{"{{", "}}"},
		{"{%", "%}"},
		{"{#", "#}"},
	}
	for _, p := range pairs {
		if strings.Count(template, p[0]) != strings.Count(template, p[1]) {
			return errors.Newf("unbalanced %s %s delimiters in template", p[0], p[1])
		}
	}
	return nil
}

// Format renders the template.
func (p *PromptTemplate) Format(values map[string]any) (string, error) {
	for _, name := range p.inputVariables {
		if _, ok := values[name]; !ok {
			return "", errors.Newf("missing prompt input variable: %s", name)
		}
	}
	out, err := p.tpl.Execute(gonja.Context(values))
	if err != nil {
		return "", errors.Wrap(err, "failed to render prompt template")
	}
	return out, nil
}

// GetInputVariables returns the variables the template expects.
func (p *PromptTemplate) GetInputVariables() []string {
	return p.inputVariables
}
