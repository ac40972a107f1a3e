// Package sequencing decides what a learner may launch next: prerequisite
// gating, hierarchy reconstruction, and directional navigation.
package sequencing

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mind-engage/scorm-engine/internal/cmi"
)

// ErrBadExpression marks a prerequisite string the AICC_SCRIPT grammar
// cannot parse. Content ships with hand-typed rules; they fail loudly
// instead of silently gating everything open or shut.
var ErrBadExpression = errors.New("malformed prerequisite expression")

// statusAliases are the single-letter and spelled-out forms AICC_SCRIPT
// rules use for statuses.
var statusAliases = map[string]string{
	"passed":        "passed",
	"completed":     "completed",
	"failed":        "failed",
	"incomplete":    "incomplete",
	"browsed":       "browsed",
	"not attempted": "notattempted",
	"p":             "passed",
	"c":             "completed",
	"f":             "failed",
	"i":             "incomplete",
	"b":             "browsed",
	"n":             "notattempted",
}

var (
	setTermRe = regexp.MustCompile(`^(\d+)\*\{(.+)\}$`)
	cmpTermRe = regexp.MustCompile(`^(.+?)(=|<>)(.+)$`)
	quoteRe   = regexp.MustCompile(`['"]`)
)

type tokenKind int

const (
	tokTerm tokenKind = iota
	tokAnd
	tokOr
	tokNot
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
}

// tokenize splits an AICC_SCRIPT rule on its operator characters. Entity
// escapes for ampersands are expanded first; everything between operators
// is one term, whitespace-trimmed.
func tokenize(expr string) []token {
	expr = strings.ReplaceAll(expr, "&amp;", "&")
	var (
		toks []token
		term strings.Builder
	)
	flush := func() {
		t := strings.TrimSpace(term.String())
		term.Reset()
		if t != "" {
			toks = append(toks, token{kind: tokTerm, text: t})
		}
	}
	for _, r := range expr {
		switch r {
		case '&':
			flush()
			toks = append(toks, token{kind: tokAnd})
		case '|':
			flush()
			toks = append(toks, token{kind: tokOr})
		case '~':
			flush()
			toks = append(toks, token{kind: tokNot})
		case '(':
			flush()
			toks = append(toks, token{kind: tokLParen})
		case ')':
			flush()
			toks = append(toks, token{kind: tokRParen})
		default:
			term.WriteRune(r)
		}
	}
	flush()
	return toks
}

// EvalPrerequisites evaluates an AICC_SCRIPT rule against the per-identifier
// status map. Precedence is NOT over AND over OR, parentheses override. An
// identifier missing from the map evaluates to false.
func EvalPrerequisites(expr string, statuses map[string]string) (bool, error) {
	p := &prereqParser{toks: tokenize(expr), statuses: statuses}
	if len(p.toks) == 0 {
		return false, fmt.Errorf("%w: empty expression %q", ErrBadExpression, expr)
	}
	v, err := p.parseOr()
	if err != nil {
		return false, err
	}
	if p.pos != len(p.toks) {
		return false, fmt.Errorf("%w: trailing tokens in %q", ErrBadExpression, expr)
	}
	return v, nil
}

type prereqParser struct {
	toks     []token
	pos      int
	statuses map[string]string
}

func (p *prereqParser) peek() (token, bool) {
	if p.pos >= len(p.toks) {
		return token{}, false
	}
	return p.toks[p.pos], true
}

func (p *prereqParser) parseOr() (bool, error) {
	v, err := p.parseAnd()
	if err != nil {
		return false, err
	}
	for {
		t, ok := p.peek()
		if !ok || t.kind != tokOr {
			return v, nil
		}
		p.pos++
		rhs, err := p.parseAnd()
		if err != nil {
			return false, err
		}
		v = v || rhs
	}
}

func (p *prereqParser) parseAnd() (bool, error) {
	v, err := p.parseNot()
	if err != nil {
		return false, err
	}
	for {
		t, ok := p.peek()
		if !ok || t.kind != tokAnd {
			return v, nil
		}
		p.pos++
		rhs, err := p.parseNot()
		if err != nil {
			return false, err
		}
		v = v && rhs
	}
}

func (p *prereqParser) parseNot() (bool, error) {
	t, ok := p.peek()
	if !ok {
		return false, fmt.Errorf("%w: unexpected end of expression", ErrBadExpression)
	}
	if t.kind == tokNot {
		p.pos++
		v, err := p.parseNot()
		return !v, err
	}
	return p.parseAtom()
}

func (p *prereqParser) parseAtom() (bool, error) {
	t, ok := p.peek()
	if !ok {
		return false, fmt.Errorf("%w: unexpected end of expression", ErrBadExpression)
	}
	switch t.kind {
	case tokLParen:
		p.pos++
		v, err := p.parseOr()
		if err != nil {
			return false, err
		}
		t, ok = p.peek()
		if !ok || t.kind != tokRParen {
			return false, fmt.Errorf("%w: unbalanced parenthesis", ErrBadExpression)
		}
		p.pos++
		return v, nil
	case tokTerm:
		p.pos++
		return p.evalTerm(t.text), nil
	default:
		return false, fmt.Errorf("%w: unexpected operator", ErrBadExpression)
	}
}

// evalTerm resolves one term: a repeat-count set, a status comparison, or
// a bare identifier (true iff completed or passed).
func (p *prereqParser) evalTerm(term string) bool {
	if m := setTermRe.FindStringSubmatch(term); m != nil {
		need, _ := strconv.Atoi(m[1])
		count := 0
		for _, id := range strings.Split(m[2], ",") {
			if cmi.Satisfied(p.statuses[strings.TrimSpace(id)]) {
				count++
			}
		}
		return count >= need
	}
	if m := cmpTermRe.FindStringSubmatch(term); m != nil {
		id := strings.TrimSpace(m[1])
		status, tracked := p.statuses[id]
		if !tracked {
			return false
		}
		want := strings.TrimSpace(quoteRe.ReplaceAllString(m[3], ""))
		if alias, ok := statusAliases[want]; ok {
			want = alias
		}
		if m[2] == "<>" {
			return status != want
		}
		return status == want
	}
	return cmi.Satisfied(p.statuses[term])
}
