package token

import "github.com/roach88/filtex/internal/schema"

// Position is where the next token lands in the clause grammar.
type Position int

const (
	Start Position = iota
	AfterField
	AfterOperator
	AfterValue
	AfterLogic
	AfterOpenBracket
	AfterCloseBracket
	AfterSeparator
	Invalid
)

var positionNames = [...]string{
	Start:             "start",
	AfterField:        "after-field",
	AfterOperator:     "after-operator",
	AfterValue:        "after-value",
	AfterLogic:        "after-logic",
	AfterOpenBracket:  "after-open-bracket",
	AfterCloseBracket: "after-close-bracket",
	AfterSeparator:    "after-separator",
	Invalid:           "invalid",
}

func (p Position) String() string {
	if p >= 0 && int(p) < len(positionNames) {
		return positionNames[p]
	}
	return "position(?)"
}

// State is the classifier context: the grammar position plus the field and
// operator of the clause being built. States are values; Advance returns
// a new one.
type State struct {
	md        *schema.Metadata
	Position  Position
	Field     *schema.Field
	Operator  schema.Operator
	Depth     int
	LastSpace bool
}

// NewState returns the state before any token has been read.
func NewState(md *schema.Metadata) State {
	return State{md: md}
}

// StateOf replays accepted tokens from the start state.
func StateOf(md *schema.Metadata, accepted []Token) State {
	s := NewState(md)
	for _, t := range accepted {
		s = s.Advance(t)
	}
	return s
}

// Advance returns the state after t. A rejected token poisons the state:
// every later candidate other than space is rejected.
func (s State) Advance(t Token) State {
	if t.Type == TypeSpace {
		s.LastSpace = !t.Rejected()
		return s
	}
	s.LastSpace = false
	if t.Rejected() || s.Position == Invalid {
		s.Position = Invalid
		return s
	}

	if op, ok := t.Type.Operator(); ok {
		s.Position = AfterOperator
		s.Operator = op
		return s
	}
	switch t.Type {
	case TypeField:
		s.Position = AfterField
		s.Field, _ = s.md.Field(t.FieldName())
		s.Operator = 0
	case TypeValue:
		s.Position = AfterValue
	case TypeAnd, TypeOr:
		s.Position = AfterLogic
		s.Field = nil
		s.Operator = 0
	case TypeOpenBracket:
		s.Position = AfterOpenBracket
		s.Depth++
	case TypeCloseBracket:
		s.Position = AfterCloseBracket
		s.Field = nil
		s.Operator = 0
		s.Depth--
	case TypeComma, TypeSlash:
		s.Position = AfterSeparator
	}
	return s
}

// Complete reports whether the state ends a well-formed expression: at
// least one clause, no open bracket and no dangling field, operator or
// separator.
func (s State) Complete() bool {
	return s.Depth == 0 && s.afterOperand()
}

// afterOperand reports whether a clause or group has just ended.
func (s State) afterOperand() bool {
	switch s.Position {
	case AfterValue, AfterCloseBracket:
		return true
	case AfterOperator:
		return s.Operator.IsNoOperand()
	}
	return false
}

func (s State) expectsClause() bool {
	switch s.Position {
	case Start, AfterLogic, AfterOpenBracket:
		return true
	}
	return false
}

func (s State) expectsValue() bool {
	return s.Position == AfterOperator || s.Position == AfterSeparator
}
