package installer

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed billboard.service.tmpl
var unitTemplate string

// unitParams are the substitutions applied to the unit template.
type unitParams struct {
	Description      string
	ExecStart        string
	WorkingDirectory string
	User             string
	Group            string
	LogPath          string
	Environment      []string
}

var unitTmpl = template.Must(template.New("unit").Parse(unitTemplate))

// renderUnit produces the service descriptor text.
func renderUnit(params unitParams) (string, error) {
	var buf strings.Builder
	if err := unitTmpl.Execute(&buf, params); err != nil {
		return "", fmt.Errorf("rendering unit template: %w", err)
	}
	return buf.String(), nil
}
