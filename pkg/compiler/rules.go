package compiler

import "lumen/pkg/lexer"

// Precedence orders binding strength from loosest to tightest, the same
// ladder a Pratt parser climbs one rung at a time via parsePrecedence.
type Precedence int

const (
	PrecNone       Precedence = iota
	PrecAssignment            // =
	PrecOr                    // or
	PrecAnd                   // and
	PrecEquality              // == !=
	PrecComparison            // < > <= >=
	PrecTerm                  // + -
	PrecFactor                // * /
	PrecUnary                 // ! -
	PrecCall                  // . ()
	PrecPrimary
)

// parseFn is a method expression over *Compiler: (*Compiler).grouping has
// exactly this type, so the rule table below can hold plain function
// values without needing closures over a particular Compiler instance.
type parseFn func(c *Compiler, canAssign bool)

type parseRule struct {
	prefix     parseFn
	infix      parseFn
	precedence Precedence
}

var rules map[lexer.TokenType]parseRule

func init() {
	rules = map[lexer.TokenType]parseRule{
		lexer.TokenLeftParen:    {prefix: (*Compiler).grouping, infix: (*Compiler).call, precedence: PrecCall},
		lexer.TokenDot:          {infix: (*Compiler).dot, precedence: PrecCall},
		lexer.TokenMinus:        {prefix: (*Compiler).unary, infix: (*Compiler).binary, precedence: PrecTerm},
		lexer.TokenPlus:         {infix: (*Compiler).binary, precedence: PrecTerm},
		lexer.TokenSlash:        {infix: (*Compiler).binary, precedence: PrecFactor},
		lexer.TokenStar:         {infix: (*Compiler).binary, precedence: PrecFactor},
		lexer.TokenBang:         {prefix: (*Compiler).unary},
		lexer.TokenBangEqual:    {infix: (*Compiler).binary, precedence: PrecEquality},
		lexer.TokenEqualEqual:   {infix: (*Compiler).binary, precedence: PrecEquality},
		lexer.TokenGreater:      {infix: (*Compiler).binary, precedence: PrecComparison},
		lexer.TokenGreaterEqual: {infix: (*Compiler).binary, precedence: PrecComparison},
		lexer.TokenLess:         {infix: (*Compiler).binary, precedence: PrecComparison},
		lexer.TokenLessEqual:    {infix: (*Compiler).binary, precedence: PrecComparison},
		lexer.TokenIdent:        {prefix: (*Compiler).variable},
		lexer.TokenString:       {prefix: (*Compiler).string},
		lexer.TokenNumber:       {prefix: (*Compiler).number},
		lexer.TokenAnd:          {infix: (*Compiler).and, precedence: PrecAnd},
		lexer.TokenOr:           {infix: (*Compiler).or, precedence: PrecOr},
		lexer.TokenFalse:        {prefix: (*Compiler).literal},
		lexer.TokenTrue:         {prefix: (*Compiler).literal},
		lexer.TokenNil:          {prefix: (*Compiler).literal},
		lexer.TokenThis:         {prefix: (*Compiler).this},
		lexer.TokenSuper:        {prefix: (*Compiler).super},
	}
}

func getRule(t lexer.TokenType) parseRule {
	return rules[t]
}

func (c *Compiler) parsePrecedence(prec Precedence) {
	c.advance()
	rule := getRule(c.prev.Type)
	if rule.prefix == nil {
		c.errorAtPrev("Expect expression.")
		return
	}
	canAssign := prec <= PrecAssignment
	rule.prefix(c, canAssign)

	for prec <= getRule(c.cur.Type).precedence {
		c.advance()
		infix := getRule(c.prev.Type).infix
		infix(c, canAssign)
	}

	if canAssign && c.match(lexer.TokenEqual) {
		c.errorAtPrev("Invalid assignment target.")
	}
}

func (c *Compiler) expression() {
	c.parsePrecedence(PrecAssignment)
}
