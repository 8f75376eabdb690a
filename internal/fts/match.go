package fts

import (
	"strings"
)

// BuildMatch converts a user search query into an FTS4 MATCH expression.
// Words prefixed with + must occur, - must not occur and ? may occur; bare
// words are combined as a single phrase group. All terms are quoted so user
// input cannot inject FTS syntax.
func BuildMatch(query string) string {
	var word, plus, minus, opt []string

	for _, w := range strings.Fields(strings.TrimSpace(query)) {
		switch {
		case len(w) > 1 && strings.HasPrefix(w, "+"):
			plus = append(plus, w[1:])
		case len(w) > 1 && strings.HasPrefix(w, "-"):
			minus = append(minus, w[1:])
		case len(w) > 1 && strings.HasPrefix(w, "?"):
			opt = append(opt, w[1:])
		default:
			word = append(word, w)
		}
	}

	if len(plus)+len(minus)+len(opt) == 0 {
		return escape(query)
	}

	var sb strings.Builder
	if len(word) > 0 {
		sb.WriteString(escape(strings.Join(word, " ")))
	}

	for _, p := range plus {
		if sb.Len() > 0 {
			sb.WriteString(" AND ")
		}
		sb.WriteString(escape(p))
	}

	for _, m := range minus {
		if sb.Len() > 0 {
			sb.WriteString(" NOT ")
		}
		sb.WriteString(escape(m))
	}

	expr := sb.String()
	if expr != "" {
		expr = "(" + expr + ")"
	}

	for _, o := range opt {
		if expr != "" {
			expr += " OR "
		}
		expr += escape(o)
	}

	return expr
}

func escape(word string) string {
	return `"` + strings.ReplaceAll(word, `"`, `""`) + `"`
}
