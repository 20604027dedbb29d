package engine

import (
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/dfseltzer/pylab/domain/scpi"
)

// helpLineWidth caps one-line summaries in multi-match help output.
const helpLineWidth = 78

// Help writes a help rendering for commands whose name matches the pattern.
// An empty pattern matches everything. The pattern is a case-insensitive
// regular expression; an invalid pattern is reported via the engine's logger
// and the call is a no-op. A single match prints the full definition, more
// print one-line summaries sorted case-insensitively by name.
func (e *Engine) Help(w io.Writer, pattern string) {
	var re *regexp.Regexp
	if pattern != "" {
		var err error
		re, err = regexp.Compile("(?i)" + pattern)
		if err != nil {
			e.log.Warn().Err(err).Str("pattern", pattern).Msg("invalid help pattern")
			return
		}
	}

	var names []string
	for name := range e.catalog {
		if re == nil || re.MatchString(name) {
			names = append(names, name)
		}
	}

	switch len(names) {
	case 0:
		fmt.Fprintln(w, "no commands found")
	case 1:
		writeDetail(w, e.catalog[names[0]])
	default:
		sort.Slice(names, func(i, j int) bool {
			return strings.ToLower(names[i]) < strings.ToLower(names[j])
		})
		for _, name := range names {
			line := fmt.Sprintf("%s: %s", name, e.catalog[name].Help)
			if len(line) > helpLineWidth {
				line = line[:helpLineWidth-3] + "..."
			}
			fmt.Fprintln(w, line)
		}
	}
}

func writeDetail(w io.Writer, def scpi.CommandDefinition) {
	fmt.Fprintln(w, def.Name)
	if def.Help != "" {
		fmt.Fprintf(w, "  %s\n", def.Help)
	}
	writeForm(w, "set", def.Set)
	writeForm(w, "query", def.Query)
	if def.Query != nil {
		fmt.Fprintf(w, "  response: %s\n", describeResponse(def.Response))
	}
}

func writeForm(w io.Writer, form string, args []scpi.ArgumentDefinition) {
	if args == nil {
		fmt.Fprintf(w, "  %s: unsupported\n", form)
		return
	}
	if len(args) == 0 {
		fmt.Fprintf(w, "  %s: no arguments\n", form)
		return
	}
	fmt.Fprintf(w, "  %s:\n", form)
	for i, a := range args {
		fmt.Fprintf(w, "    %d: %s\n", i, describeArgument(a))
	}
}

func describeArgument(a scpi.ArgumentDefinition) string {
	var b strings.Builder
	b.WriteString(a.Type.String())
	if a.Required {
		b.WriteString(", required")
	} else {
		b.WriteString(", optional")
	}
	if a.Default != nil {
		fmt.Fprintf(&b, ", default %v", a.Default)
	}
	if len(a.AllowedValues) > 0 {
		fmt.Fprintf(&b, ", one of %v", a.AllowedValues)
	}
	if a.Range != nil {
		fmt.Fprintf(&b, ", range [%s, %s]", bound(a.Range.Min), bound(a.Range.Max))
	}
	if a.Variadic {
		b.WriteString(", variadic")
	}
	return b.String()
}

func describeResponse(fields []scpi.ResponseField) string {
	if len(fields) == 0 {
		return "raw text"
	}
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f.Type.String()
		if len(f.AllowedValues) > 0 {
			parts[i] += fmt.Sprintf(" %v", f.AllowedValues)
		}
	}
	return strings.Join(parts, ", ")
}

func bound(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%g", *v)
}
