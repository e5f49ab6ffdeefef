package token

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/roach88/filtex/internal/schema"
)

// Pattern pairs an anchored expression with the token type it yields.
type Pattern struct {
	re  *regexp.Regexp
	typ Type
}

// Type returns the token type produced by the pattern.
func (p Pattern) Type() Type { return p.typ }

// Match is a non-empty prefix matched by a pattern.
type Match struct {
	Type Type
	Text string
	Rest string
}

// Table is the ordered pattern list for one schema. First match wins.
type Table struct {
	patterns []Pattern
}

const sep = `[\s\-_]+`

var (
	structuralPatterns = []Pattern{
		{regexp.MustCompile(`^\(`), TypeOpenBracket},
		{regexp.MustCompile(`^\)`), TypeCloseBracket},
		{regexp.MustCompile(`^,`), TypeComma},
		{regexp.MustCompile(`^/`), TypeSlash},
		{regexp.MustCompile(`^\s+`), TypeSpace},
	}

	logicPatterns = []Pattern{
		{regexp.MustCompile(`(?i)^and\b`), TypeAnd},
		{regexp.MustCompile(`^&&`), TypeAnd},
		{regexp.MustCompile(`(?i)^or\b`), TypeOr},
		{regexp.MustCompile(`^\|\|`), TypeOr},
	}

	symbolPatterns = []Pattern{
		{regexp.MustCompile(`^>=`), TypeGreaterThanOrEqual},
		{regexp.MustCompile(`^<=`), TypeLessThanOrEqual},
		{regexp.MustCompile(`^!=`), TypeNotEqual},
		{regexp.MustCompile(`^<>`), TypeNotEqual},
		{regexp.MustCompile(`^==`), TypeEqual},
		{regexp.MustCompile(`^=`), TypeEqual},
		{regexp.MustCompile(`^>`), TypeGreaterThan},
		{regexp.MustCompile(`^<`), TypeLessThan},
	}

	valuePatterns = []Pattern{
		{regexp.MustCompile(`^"(?:[^"\\]|\\.)*"`), TypeString},
		{regexp.MustCompile(`^'(?:[^'\\]|\\.)*'`), TypeString},
		{regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}(?::\d{2}(?:\.\d+)?)?(?:Z|[+-]\d{2}:\d{2})?\b`), TypeDateTime},
		{regexp.MustCompile(`^\d{4}-\d{2}-\d{2}\b`), TypeDate},
		{regexp.MustCompile(`^\d{1,2}:\d{2}(?::\d{2}(?:\.\d+)?)?\b`), TypeTime},
		{regexp.MustCompile(`(?i)^(?:\d+(?:\.\d+)?(?:ns|us|µs|ms|s|m|h|d|w))+\b`), TypeTime},
		{regexp.MustCompile(`^-?\d+(?:\.\d+)?\b`), TypeNumber},
		{regexp.MustCompile(`(?i)^(?:true|false)\b`), TypeBoolean},
		{regexp.MustCompile(`^[^\s(),/"'][^\s(),/]*`), TypeLiteral},
	}
)

// NewTable builds the pattern table for md: structural symbols, logic,
// operator words and symbols, field spellings, then value shapes.
func NewTable(md *schema.Metadata) *Table {
	var patterns []Pattern
	patterns = append(patterns, structuralPatterns...)
	patterns = append(patterns, logicPatterns...)
	patterns = append(patterns, operatorWordPatterns()...)
	patterns = append(patterns, symbolPatterns...)
	if md != nil {
		for _, s := range md.Spellings() {
			patterns = append(patterns, Pattern{regexp.MustCompile(wordPattern(s)), TypeField})
		}
	}
	patterns = append(patterns, valuePatterns...)
	return &Table{patterns: patterns}
}

// operatorWordPatterns matches operator names and labels with any mix of
// spaces, hyphens and underscores between words. Operators with more words
// come first so "greater than or equal" wins over "greater than".
func operatorWordPatterns() []Pattern {
	ops := schema.Operators()
	sort.SliceStable(ops, func(i, j int) bool {
		return len(strings.Fields(ops[i].Label())) > len(strings.Fields(ops[j].Label()))
	})
	patterns := make([]Pattern, 0, len(ops))
	for _, op := range ops {
		words := strings.Fields(strings.ToLower(op.Label()))
		expr := `(?i)^` + strings.Join(words, sep) + `\b`
		patterns = append(patterns, Pattern{regexp.MustCompile(expr), OperatorType(op)})
	}
	return patterns
}

func wordPattern(s string) string {
	expr := `(?i)^` + strings.ReplaceAll(regexp.QuoteMeta(s), " ", `\s+`)
	if r, _ := utf8.DecodeLastRuneInString(s); r == '_' || r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
		expr += `\b`
	}
	return expr
}

// Patterns returns the table's patterns in match order.
func (t *Table) Patterns() []Pattern {
	return append([]Pattern(nil), t.patterns...)
}

// FindMatch returns the first pattern matching a non-empty prefix of text.
func (t *Table) FindMatch(text string) (Match, bool) {
	for _, p := range t.patterns {
		if m, ok := p.match(text); ok {
			return m, true
		}
	}
	return Match{}, false
}

// Matches returns every pattern match for text in table order. The
// tokenizer falls back to later candidates when context rejects earlier ones.
func (t *Table) Matches(text string) []Match {
	var out []Match
	for _, p := range t.patterns {
		if m, ok := p.match(text); ok {
			out = append(out, m)
		}
	}
	return out
}

func (p Pattern) match(text string) (Match, bool) {
	loc := p.re.FindStringIndex(text)
	if loc == nil || loc[1] == 0 {
		return Match{}, false
	}
	return Match{Type: p.typ, Text: text[:loc[1]], Rest: text[loc[1]:]}, true
}

// Unquote strips the quotes of a quoted string lexeme and resolves
// backslash escapes. Unquoted text is returned unchanged.
func Unquote(text string) string {
	if len(text) < 2 {
		return text
	}
	q := text[0]
	if (q != '"' && q != '\'') || text[len(text)-1] != q {
		return text
	}
	body := text[1 : len(text)-1]
	var b strings.Builder
	b.Grow(len(body))
	escaped := false
	for _, r := range body {
		if escaped {
			switch r {
			case 'n':
				b.WriteRune('\n')
			case 't':
				b.WriteRune('\t')
			default:
				b.WriteRune(r)
			}
			escaped = false
			continue
		}
		if r == '\\' {
			escaped = true
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Quote renders s as a double-quoted string lexeme that Unquote reverses.
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
