package logic

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/clinforms/clinforms/pkg/formmodel"
)

// EvaluateFormula evaluates a calculation formula: number literals,
// {questionCode} references, + - * /, unary minus, and parentheses.
// lookup resolves a reference to its numeric value; an unresolvable
// reference or a malformed formula yields an error, which callers turn
// into "no value" rather than a failure.
func EvaluateFormula(formula string, lookup func(ref string) (float64, bool)) (float64, error) {
	p := &formulaParser{input: formula, lookup: lookup}
	v, err := p.expr()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.pos < len(p.input) {
		return 0, fmt.Errorf("unexpected %q at offset %d", p.input[p.pos], p.pos)
	}
	return v, nil
}

type formulaParser struct {
	input  string
	pos    int
	lookup func(ref string) (float64, bool)
}

func (p *formulaParser) skipSpace() {
	for p.pos < len(p.input) && unicode.IsSpace(rune(p.input[p.pos])) {
		p.pos++
	}
}

func (p *formulaParser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *formulaParser) expr() (float64, error) {
	v, err := p.term()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek() {
		case '+':
			p.pos++
			r, err := p.term()
			if err != nil {
				return 0, err
			}
			v += r
		case '-':
			p.pos++
			r, err := p.term()
			if err != nil {
				return 0, err
			}
			v -= r
		default:
			return v, nil
		}
	}
}

func (p *formulaParser) term() (float64, error) {
	v, err := p.factor()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek() {
		case '*':
			p.pos++
			r, err := p.factor()
			if err != nil {
				return 0, err
			}
			v *= r
		case '/':
			p.pos++
			r, err := p.factor()
			if err != nil {
				return 0, err
			}
			if r == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			v /= r
		default:
			return v, nil
		}
	}
}

func (p *formulaParser) factor() (float64, error) {
	switch c := p.peek(); {
	case c == '-':
		p.pos++
		v, err := p.factor()
		return -v, err
	case c == '(':
		p.pos++
		v, err := p.expr()
		if err != nil {
			return 0, err
		}
		if p.peek() != ')' {
			return 0, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return v, nil
	case c == '{':
		return p.reference()
	case c >= '0' && c <= '9' || c == '.':
		return p.number()
	case c == 0:
		return 0, fmt.Errorf("unexpected end of formula")
	default:
		return 0, fmt.Errorf("unexpected %q at offset %d", c, p.pos)
	}
}

func (p *formulaParser) number() (float64, error) {
	start := p.pos
	for p.pos < len(p.input) && (p.input[p.pos] >= '0' && p.input[p.pos] <= '9' || p.input[p.pos] == '.') {
		p.pos++
	}
	v, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return 0, fmt.Errorf("bad number %q", p.input[start:p.pos])
	}
	return v, nil
}

func (p *formulaParser) reference() (float64, error) {
	p.pos++ // consume '{'
	end := strings.IndexByte(p.input[p.pos:], '}')
	if end < 0 {
		return 0, fmt.Errorf("unterminated reference")
	}
	ref := strings.TrimSpace(p.input[p.pos : p.pos+end])
	p.pos += end + 1
	v, ok := p.lookup(ref)
	if !ok {
		return 0, fmt.Errorf("unresolved reference %q", ref)
	}
	return v, nil
}

// numericAnswer converts a question's answer to a number for formula
// evaluation. Choice answers contribute their selected option's
// numeric score (summed for multi-select), falling back to parsing the
// raw value; everything else parses the text.
func numericAnswer(q *formmodel.Question, v Value) (float64, bool) {
	if q.Type.SupportsOptions() && len(q.Options) > 0 {
		items := v.Items
		if v.Kind == KindText {
			if v.Text == "" {
				return 0, false
			}
			items = []string{v.Text}
		}
		if len(items) == 0 {
			return 0, false
		}
		var sum float64
		for _, item := range items {
			score, ok := optionScore(q, item)
			if !ok {
				return 0, false
			}
			sum += score
		}
		return sum, true
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(v.Canonical()), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func optionScore(q *formmodel.Question, value string) (float64, bool) {
	for _, o := range q.Options {
		if o.EffectiveValue() == value {
			if o.NumericScore != nil {
				return *o.NumericScore, true
			}
			f, err := strconv.ParseFloat(strings.TrimSpace(o.EffectiveValue()), 64)
			if err != nil {
				return 0, false
			}
			return f, true
		}
	}
	return 0, false
}

// seedCalculated evaluates every calculated question's formula into a
// copy of the snapshot, in flattened order so earlier calculated
// questions can feed later ones. References resolve by question code
// (or id string) among strictly preceding questions only, mirroring
// the rule-source ordering. A formula that fails leaves its question
// unanswered and records a diagnostic.
func (p *prepared) seedCalculated(answers *Snapshot) *Snapshot {
	hasCalc := false
	for _, fq := range p.flat {
		if fq.question.Type == formmodel.TypeCalculated && fq.question.CalculationFormula != "" {
			hasCalc = true
			break
		}
	}
	if !hasCalc {
		return answers
	}

	snap := answers.clone()
	for idx, fq := range p.flat {
		q, sec := fq.question, fq.section
		if q.Type != formmodel.TypeCalculated || q.CalculationFormula == "" {
			continue
		}

		preceding := p.flat[:idx]
		n := instanceCount(sec, snap)
		for i := 0; i < n; i++ {
			lookup := func(ref string) (float64, bool) {
				src := findByRef(preceding, ref)
				if src == nil {
					return 0, false
				}
				rep := 0
				if sec.IsRepeatable && p.sectionOf[src.ID] == sec {
					rep = i
				}
				v, present := snap.Get(src.ID, rep)
				if !present {
					return 0, false
				}
				return numericAnswer(src, v)
			}

			v, err := EvaluateFormula(q.CalculationFormula, lookup)
			if err != nil {
				if i == 0 {
					p.diags = append(p.diags, Diagnostic{
						Code:       DiagFormulaError,
						QuestionID: q.ID,
						Message:    err.Error(),
					})
				}
				continue
			}
			snap.SetRepeat(q.ID, i, TextValue(strconv.FormatFloat(v, 'f', -1, 64)))
		}
	}
	return snap
}

func findByRef(flat []flatQuestion, ref string) *formmodel.Question {
	for _, fq := range flat {
		if fq.question.Code != "" && fq.question.Code == ref {
			return fq.question
		}
	}
	if id, err := uuid.Parse(ref); err == nil {
		for _, fq := range flat {
			if fq.question.ID == id {
				return fq.question
			}
		}
	}
	return nil
}
