package session

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"

	"gitsmart/internal/theme"
)

// highlightDiff colours a unified diff for the terminal. Diff markers use the
// theme's addition and deletion colours; the code after them is tokenised
// with the lexer matching the file being shown.
func highlightDiff(diff string) string {
	style := styles.Get("github-dark")
	if style == nil {
		style = styles.Fallback
	}

	var (
		lexer chroma.Lexer
		out   strings.Builder
	)
	for i, line := range strings.Split(diff, "\n") {
		if i > 0 {
			out.WriteByte('\n')
		}

		if path, ok := diffPath(line); ok {
			lexer = lexerForPath(path)
			out.WriteString(theme.PagerTitleStyle.Render(line))
			continue
		}

		switch {
		case strings.HasPrefix(line, "+++ "), strings.HasPrefix(line, "--- "),
			strings.HasPrefix(line, "index "), strings.HasPrefix(line, "commit "):
			out.WriteString(theme.MutedStyle.Render(line))
		case strings.HasPrefix(line, "@@"):
			out.WriteString(theme.ModelStyle.Render(line))
		case strings.HasPrefix(line, "+"):
			out.WriteString(theme.AdditionsStyle.Render("+"))
			out.WriteString(highlightCode(lexer, style, line[1:]))
		case strings.HasPrefix(line, "-"):
			out.WriteString(theme.DeletionsStyle.Render("-"))
			out.WriteString(highlightCode(lexer, style, line[1:]))
		default:
			out.WriteString(highlightCode(lexer, style, line))
		}
	}
	return out.String()
}

// diffPath extracts the new path from a "diff --git a/x b/x" header
func diffPath(line string) (string, bool) {
	rest, ok := strings.CutPrefix(line, "diff --git ")
	if !ok {
		return "", false
	}
	if idx := strings.LastIndex(rest, " b/"); idx >= 0 {
		return rest[idx+3:], true
	}
	return "", true
}

func lexerForPath(path string) chroma.Lexer {
	if path == "" {
		return nil
	}
	lexer := lexers.Match(path)
	if lexer == nil {
		return nil
	}
	return chroma.Coalesce(lexer)
}

func highlightCode(lexer chroma.Lexer, style *chroma.Style, code string) string {
	if lexer == nil || code == "" {
		return code
	}
	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var sb strings.Builder
	for _, token := range iterator.Tokens() {
		value := strings.TrimSuffix(token.Value, "\n")
		if value == "" {
			continue
		}
		entry := style.Get(token.Type)
		if !entry.Colour.IsSet() {
			sb.WriteString(value)
			continue
		}
		sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(entry.Colour.String())).Render(value))
	}
	return sb.String()
}
