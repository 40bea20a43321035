package attendance

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"workforce/internal/domain/core"
)

// CandidatesFrom turns directory employees into match candidates.
func CandidatesFrom(employees []core.Employee) []Candidate {
	out := make([]Candidate, 0, len(employees))
	for _, emp := range employees {
		out = append(out, Candidate{
			EmployeeID: emp.ID,
			FirstName:  emp.FirstName,
			MiddleName: emp.MiddleName,
			LastName:   emp.LastName,
			FullName:   emp.FullName,
		})
	}
	return out
}

// MatchEmployee resolves a raw device name against candidates. A name that
// fits more than one candidate is treated as unmatched.
func MatchEmployee(raw string, candidates []Candidate) (Candidate, bool) {
	return NewMatcher(candidates).Match(raw)
}

// Matcher indexes candidates once so that every row of an upload can be
// resolved without rescanning the directory.
type Matcher struct {
	candidates []Candidate
	names      []nameParts
	exact      map[string][]int
}

type nameParts struct {
	first  []string
	middle []string
	last   []string
}

func NewMatcher(candidates []Candidate) *Matcher {
	m := &Matcher{
		candidates: candidates,
		names:      make([]nameParts, len(candidates)),
		exact:      make(map[string][]int),
	}
	for i, c := range candidates {
		parts := nameParts{
			first:  tokens(c.FirstName),
			middle: tokens(c.MiddleName),
			last:   tokens(c.LastName),
		}
		m.names[i] = parts
		for _, key := range parts.keys() {
			m.add(key, i)
		}
		if full := strings.Join(tokens(c.FullName), " "); full != "" {
			m.add(full, i)
		}
	}
	return m
}

func (m *Matcher) add(key string, idx int) {
	for _, existing := range m.exact[key] {
		if existing == idx {
			return
		}
	}
	m.exact[key] = append(m.exact[key], idx)
}

// Match returns the single candidate raw refers to.
func (m *Matcher) Match(raw string) (Candidate, bool) {
	words := rawTokens(raw)
	if len(words) == 0 {
		return Candidate{}, false
	}

	switch hits := m.exact[strings.Join(words, " ")]; len(hits) {
	case 1:
		return m.candidates[hits[0]], true
	case 0:
	default:
		return Candidate{}, false
	}

	found := -1
	for i, parts := range m.names {
		if !parts.covers(words) {
			continue
		}
		if found >= 0 {
			return Candidate{}, false
		}
		found = i
	}
	if found < 0 {
		return Candidate{}, false
	}
	return m.candidates[found], true
}

func (p nameParts) keys() []string {
	if len(p.first) == 0 || len(p.last) == 0 {
		return nil
	}
	first := strings.Join(p.first, " ")
	last := strings.Join(p.last, " ")
	keys := []string{first + " " + last, last + " " + first}
	if len(p.middle) > 0 {
		middle := strings.Join(p.middle, " ")
		initials := strings.Join(initialsOf(p.middle), " ")
		keys = append(keys,
			first+" "+middle+" "+last,
			last+" "+first+" "+middle,
			first+" "+initials+" "+last,
			last+" "+first+" "+initials,
		)
	}
	return keys
}

// covers reports whether words name this person: every first and last name
// token is present and anything left over is a middle name or its initial.
func (p nameParts) covers(words []string) bool {
	if len(p.first) == 0 || len(p.last) == 0 {
		return false
	}
	remaining := make(map[string]int, len(words))
	for _, w := range words {
		remaining[w]++
	}
	for _, group := range [][]string{p.first, p.last} {
		for _, t := range group {
			if remaining[t] == 0 {
				return false
			}
			remaining[t]--
		}
	}
	for w, n := range remaining {
		if n == 0 {
			continue
		}
		if !p.isMiddle(w) {
			return false
		}
	}
	return true
}

func (p nameParts) isMiddle(word string) bool {
	for _, m := range p.middle {
		if word == m {
			return true
		}
		if len([]rune(word)) == 1 && strings.HasPrefix(m, word) {
			return true
		}
	}
	return false
}

func initialsOf(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		r := []rune(w)
		if len(r) > 0 {
			out = append(out, string(r[0]))
		}
	}
	return out
}

// rawTokens normalises a device name. "Last, First Middle" is reordered to
// "First Middle Last".
func rawTokens(raw string) []string {
	if before, after, ok := strings.Cut(raw, ","); ok {
		return append(tokens(after), tokens(before)...)
	}
	return tokens(raw)
}

func tokens(s string) []string {
	// Transformers carry state, so each call builds its own chain.
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)
	return strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
