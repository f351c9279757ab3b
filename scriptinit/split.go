package scriptinit

import "strings"

// SplitStatements splits script into trimmed, non-empty statements on sep.
// Separators inside quoted literals are ignored; '--' line comments and
// '/* */' block comments are stripped.
func SplitStatements(script, sep string) []string {
	if sep == "" {
		sep = DefaultSeparator
	}

	var (
		stmts    []string
		b        strings.Builder
		inSingle bool
		inDouble bool
	)
	flush := func() {
		if s := strings.TrimSpace(b.String()); s != "" {
			stmts = append(stmts, s)
		}
		b.Reset()
	}

	for i := 0; i < len(script); i++ {
		c := script[i]
		if inSingle || inDouble {
			b.WriteByte(c)
			// A doubled quote closes and immediately reopens the literal.
			if (inSingle && c == '\'') || (inDouble && c == '"') {
				inSingle, inDouble = false, false
			}
			continue
		}

		rest := script[i:]
		switch {
		case c == '\'':
			inSingle = true
			b.WriteByte(c)
		case c == '"':
			inDouble = true
			b.WriteByte(c)
		case strings.HasPrefix(rest, "--"):
			nl := strings.IndexByte(rest, '\n')
			if nl < 0 {
				i = len(script)
				continue
			}
			i += nl - 1
		case strings.HasPrefix(rest, "/*"):
			end := strings.Index(rest[2:], "*/")
			if end < 0 {
				i = len(script)
				continue
			}
			b.WriteByte(' ')
			i += end + 3
		case strings.HasPrefix(rest, sep):
			flush()
			i += len(sep) - 1
		default:
			b.WriteByte(c)
		}
	}
	flush()
	return stmts
}
