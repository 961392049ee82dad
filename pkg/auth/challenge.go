package auth

import (
	"strings"
)

// Challenge is one auth-scheme with its parameters as found in a
// Proxy-Authenticate header. The same syntax carries the credentials of a
// Proxy-Authorization header, so Challenge doubles as their parsed form.
type Challenge struct {
	// Scheme is lower-cased.
	Scheme string
	// Params keys are lower-cased.
	Params map[string]string
}

// ParseChallenges parses header values that each carry one or more
// comma separated challenges.
func ParseChallenges(values []string) (cs []Challenge) {
	for _, v := range values {
		cs = append(cs, parseChallenges(v)...)
	}
	return
}

func parseChallenges(s string) (cs []Challenge) {
	cur := -1
	s = skipSpace(s)
	for s != "" {
		tok, rest := readToken(s)
		if tok == "" {
			// stray separator or quote
			s = skipSpace(s[1:])
			continue
		}

		rest = skipSpace(rest)
		if strings.HasPrefix(rest, "=") && cur >= 0 {
			rest = skipSpace(rest[1:])
			var val string
			if strings.HasPrefix(rest, `"`) {
				val, rest = readQuoted(rest)
			} else {
				val, rest = readToken(rest)
			}
			cs[cur].Params[strings.ToLower(tok)] = val
		} else {
			cs = append(cs, Challenge{
				Scheme: strings.ToLower(tok),
				Params: make(map[string]string),
			})
			cur = len(cs) - 1
		}

		rest = skipSpace(rest)
		rest = strings.TrimPrefix(rest, ",")
		s = skipSpace(rest)
	}
	return
}

func skipSpace(s string) string {
	return strings.TrimLeft(s, " \t")
}

func readToken(s string) (tok, rest string) {
	i := strings.IndexAny(s, " \t,=\"")
	if i < 0 {
		return s, ""
	}
	return s[:i], s[i:]
}

// readQuoted reads a quoted-string starting at s[0] == '"'.
func readQuoted(s string) (val, rest string) {
	var b strings.Builder
	for i := 1; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			if i+1 < len(s) {
				i++
				b.WriteByte(s[i])
			}
		case '"':
			return b.String(), s[i+1:]
		default:
			b.WriteByte(c)
		}
	}
	// unterminated
	return b.String(), ""
}

func find(cs []Challenge, scheme string) *Challenge {
	for i := range cs {
		if cs[i].Scheme == scheme {
			return &cs[i]
		}
	}
	return nil
}
