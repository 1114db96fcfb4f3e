package declare

import "bytes"

// BlankNonCode replaces the contents of comments, single-quoted strings and
// dollar-quoted blocks with spaces. Newlines are kept so offsets and line
// numbers still line up with the input. Double-quoted identifiers are kept.
func BlankNonCode(sql string) string {
	b := []byte(sql)
	n := len(b)

	blank := func(from, to int) {
		for k := from; k < to && k < n; k++ {
			if b[k] != '\n' {
				b[k] = ' '
			}
		}
	}

	i := 0
	for i < n {
		c := b[i]
		switch {
		case c == '-' && i+1 < n && b[i+1] == '-':
			end := i
			for end < n && b[end] != '\n' {
				end++
			}
			blank(i, end)
			i = end

		case c == '/' && i+1 < n && b[i+1] == '*':
			// Block comments nest.
			depth, end := 1, i+2
			for end < n && depth > 0 {
				switch {
				case b[end] == '/' && end+1 < n && b[end+1] == '*':
					depth++
					end += 2
				case b[end] == '*' && end+1 < n && b[end+1] == '/':
					depth--
					end += 2
				default:
					end++
				}
			}
			blank(i, end)
			i = end

		case c == '\'':
			end := i + 1
			for end < n {
				if b[end] == '\'' {
					if end+1 < n && b[end+1] == '\'' {
						end += 2
						continue
					}
					end++
					break
				}
				end++
			}
			blank(i, end)
			i = end

		case c == '"':
			end := i + 1
			for end < n && b[end] != '"' {
				end++
			}
			i = end + 1

		case c == '$' && (i == 0 || !isIdentByte(b[i-1])):
			tagEnd, ok := dollarTag(b, i)
			if !ok {
				i++
				continue
			}
			tag := b[i : tagEnd+1]
			end := n
			if k := bytes.Index(b[tagEnd+1:], tag); k >= 0 {
				end = tagEnd + 1 + k + len(tag)
			}
			blank(i, end)
			i = end

		default:
			i++
		}
	}
	return string(b)
}

// dollarTag returns the index of the closing '$' of a dollar-quote opener
// starting at start, e.g. $$ or $body$.
func dollarTag(b []byte, start int) (int, bool) {
	j := start + 1
	if j < len(b) && b[j] == '$' {
		return j, true
	}
	if j >= len(b) || !(isLetter(b[j]) || b[j] == '_') {
		return 0, false
	}
	for j < len(b) && (isLetter(b[j]) || isDigit(b[j]) || b[j] == '_') {
		j++
	}
	if j < len(b) && b[j] == '$' {
		return j, true
	}
	return 0, false
}

func isIdentByte(c byte) bool {
	return isLetter(c) || isDigit(c) || c == '_' || c == '$'
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
