// Package compiler implements the single-pass Pratt-style compiler from
// spec.md §4.5: it drives the lexer token-by-token and emits bytecode plus
// constants directly into a Chunk, resolving lexical scope on the fly
// without building an intermediate AST.
package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PREPONDERANCE/Lox/internal/chunk"
	"github.com/PREPONDERANCE/Lox/internal/intern"
	"github.com/PREPONDERANCE/Lox/internal/lexer"
	"github.com/PREPONDERANCE/Lox/internal/token"
	"github.com/PREPONDERANCE/Lox/internal/value"
)

// Precedence levels, lowest to highest, per spec.md §4.5.
type Precedence int

const (
	PrecNone Precedence = iota
	PrecAssignment
	PrecOr
	PrecAnd
	PrecEquality
	PrecComparison
	PrecTerm
	PrecFactor
	PrecUnary
	PrecCall
	PrecPrimary
)

type parseFn func(c *Compiler, canAssign bool)

type parseRule struct {
	prefix     parseFn
	infix      parseFn
	precedence Precedence
}

var rules map[token.TokenType]parseRule

func init() {
	rules = map[token.TokenType]parseRule{
		token.LEFT_PAREN:    {grouping, nil, PrecNone},
		token.MINUS:         {unary, binary, PrecTerm},
		token.PLUS:          {nil, binary, PrecTerm},
		token.SLASH:         {nil, binary, PrecFactor},
		token.STAR:          {nil, binary, PrecFactor},
		token.BANG:          {unary, nil, PrecNone},
		token.BANG_EQUAL:    {nil, binary, PrecEquality},
		token.EQUAL_EQUAL:   {nil, binary, PrecEquality},
		token.GREATER:       {nil, binary, PrecComparison},
		token.GREATER_EQUAL: {nil, binary, PrecComparison},
		token.LESS:          {nil, binary, PrecComparison},
		token.LESS_EQUAL:    {nil, binary, PrecComparison},
		token.NUMBER:        {number, nil, PrecNone},
		token.STRING:        {str, nil, PrecNone},
		token.IDENTIFIER:    {variable, nil, PrecNone},
		token.NIL:           {literal, nil, PrecNone},
		token.TRUE:          {literal, nil, PrecNone},
		token.FALSE:         {literal, nil, PrecNone},
		token.AND:           {nil, and_, PrecAnd},
		token.OR:            {nil, or_, PrecOr},
	}
}

func ruleFor(t token.TokenType) parseRule {
	if r, ok := rules[t]; ok {
		return r
	}
	return parseRule{nil, nil, PrecNone}
}

// maxLocalCount bounds the fixed-capacity locals stack from spec.md §3.
const maxLocalCount = 256

type local struct {
	name  token.Token
	depth int // -1 means "declared but not yet initialized"
}

// Compiler holds the parser cursor and the lexical-scope model described
// in spec.md §3/§4.5. One Compiler compiles exactly one source buffer into
// exactly one Chunk.
type Compiler struct {
	lex   *lexer.Lexer
	pool  *intern.Pool
	chunk *chunk.Chunk

	current  token.Token
	previous token.Token

	hadError  bool
	panicMode bool
	errors    []string

	locals     []local
	scopeDepth int
}

// Compile compiles source into a fresh Chunk using pool for string
// interning (shared with the VM so identifiers/literals and
// runtime-concatenated strings are interned into the same pool). It
// returns the populated chunk and nil on success, or a nil chunk and a
// non-nil error listing every reported compile error, one per line. After
// the first error in a statement, panic mode suppresses further reports
// until the parser resynchronizes.
func Compile(source string, pool *intern.Pool) (*chunk.Chunk, error) {
	c := &Compiler{
		lex:   lexer.New(source),
		pool:  pool,
		chunk: chunk.New(),
	}

	c.advance()
	for !c.match(token.EOF) {
		c.declaration()
	}
	c.emitReturn()

	if c.hadError {
		return nil, fmt.Errorf("%s", strings.Join(c.errors, "\n"))
	}
	return c.chunk, nil
}

// --- parser cursor -------------------------------------------------------

func (c *Compiler) advance() {
	c.previous = c.current
	for {
		c.current = c.lex.NextToken()
		if c.current.Type != token.ERROR {
			break
		}
		c.errorAtCurrent(c.current.Lexeme)
	}
}

func (c *Compiler) check(t token.TokenType) bool {
	return c.current.Type == t
}

func (c *Compiler) match(t token.TokenType) bool {
	if !c.check(t) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) consume(t token.TokenType, msg string) {
	if c.check(t) {
		c.advance()
		return
	}
	c.errorAtCurrent(msg)
}

// --- error reporting ------------------------------------------------------

func (c *Compiler) errorAt(tok token.Token, msg string) {
	if c.panicMode {
		return
	}
	c.panicMode = true

	var sb strings.Builder
	fmt.Fprintf(&sb, "[line %d] Error", tok.Line)
	switch tok.Type {
	case token.EOF:
		sb.WriteString(" at end")
	case token.ERROR:
		// the token's lexeme already carries the message; nothing to add.
	default:
		fmt.Fprintf(&sb, " at '%s'", tok.Lexeme)
	}
	fmt.Fprintf(&sb, ": %s", msg)

	c.errors = append(c.errors, sb.String())
	c.hadError = true
}

func (c *Compiler) errorAtCurrent(msg string) { c.errorAt(c.current, msg) }
func (c *Compiler) error(msg string)          { c.errorAt(c.previous, msg) }

// --- bytecode emission ----------------------------------------------------

func (c *Compiler) emitByte(b byte) {
	c.chunk.Write(b, c.previous.Line)
}

func (c *Compiler) emitBytes(b1, b2 byte) {
	c.emitByte(b1)
	c.emitByte(b2)
}

func (c *Compiler) emitReturn() {
	c.emitByte(byte(chunk.OP_RETURN))
}

func (c *Compiler) emitConstant(v value.Value) {
	idx, err := c.chunk.AddConstant(v)
	if err != nil {
		c.error(err.Error())
		return
	}
	c.emitBytes(byte(chunk.OP_CONSTANT), idx)
}

// emitJump writes op followed by a two-byte placeholder and returns the
// offset of the first placeholder byte, for patchJump to fill in later.
func (c *Compiler) emitJump(op chunk.OpCode) int {
	c.emitByte(byte(op))
	c.emitByte(0xff)
	c.emitByte(0xff)
	return len(c.chunk.Code) - 2
}

func (c *Compiler) patchJump(offset int) {
	jump := len(c.chunk.Code) - offset - 2
	if jump > 65535 {
		c.error("Too much code to jump")
	}
	c.chunk.Code[offset] = byte((jump >> 8) & 0xff)
	c.chunk.Code[offset+1] = byte(jump & 0xff)
}

func (c *Compiler) emitLoop(loopStart int) {
	c.emitByte(byte(chunk.OP_LOOP))
	offset := len(c.chunk.Code) - loopStart + 2
	if offset > 65535 {
		c.error("Loop body too large")
	}
	c.emitByte(byte((offset >> 8) & 0xff))
	c.emitByte(byte(offset & 0xff))
}

// --- declarations and statements ------------------------------------------

func (c *Compiler) declaration() {
	if c.match(token.VAR) {
		c.varDeclaration()
	} else {
		c.statement()
	}

	if c.panicMode {
		c.synchronize()
	}
}

func (c *Compiler) varDeclaration() {
	global := c.parseVariable("Expect variable name.")

	if c.match(token.EQUAL) {
		c.expression()
	} else {
		c.emitByte(byte(chunk.OP_NIL))
	}
	c.consume(token.SEMICOLON, "Expect ';' after variable declaration.")

	c.defineVariable(global)
}

func (c *Compiler) statement() {
	switch {
	case c.match(token.PRINT):
		c.printStatement()
	case c.match(token.IF):
		c.ifStatement()
	case c.match(token.WHILE):
		c.whileStatement()
	case c.match(token.FOR):
		c.forStatement()
	case c.match(token.LEFT_BRACE):
		c.beginScope()
		c.block()
		c.endScope()
	default:
		c.expressionStatement()
	}
}

func (c *Compiler) printStatement() {
	c.expression()
	c.consume(token.SEMICOLON, "Expect ';' after value.")
	c.emitByte(byte(chunk.OP_PRINT))
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.consume(token.SEMICOLON, "Expect ';' after expression.")
	c.emitByte(byte(chunk.OP_POP))
}

func (c *Compiler) block() {
	for !c.check(token.RIGHT_BRACE) && !c.check(token.EOF) {
		c.declaration()
	}
	c.consume(token.RIGHT_BRACE, "Expect '}' after block.")
}

func (c *Compiler) beginScope() {
	c.scopeDepth++
}

// endScope discards both the compile-time local bindings and the runtime
// stack slots they occupy, in lockstep (spec.md §4.5).
func (c *Compiler) endScope() {
	c.scopeDepth--
	for len(c.locals) > 0 && c.locals[len(c.locals)-1].depth > c.scopeDepth {
		c.emitByte(byte(chunk.OP_POP))
		c.locals = c.locals[:len(c.locals)-1]
	}
}

func (c *Compiler) ifStatement() {
	c.consume(token.LEFT_PAREN, "Expect '(' after 'if'.")
	c.expression()
	c.consume(token.RIGHT_PAREN, "Expect ')' after condition.")

	thenJump := c.emitJump(chunk.OP_JUMP_IF_FALSE)
	c.emitByte(byte(chunk.OP_POP))
	c.statement()

	elseJump := c.emitJump(chunk.OP_JUMP)
	c.patchJump(thenJump)
	c.emitByte(byte(chunk.OP_POP))

	if c.match(token.ELSE) {
		c.statement()
	}
	c.patchJump(elseJump)
}

func (c *Compiler) whileStatement() {
	loopStart := len(c.chunk.Code)
	c.consume(token.LEFT_PAREN, "Expect '(' after 'while'.")
	c.expression()
	c.consume(token.RIGHT_PAREN, "Expect ')' after condition.")

	exitJump := c.emitJump(chunk.OP_JUMP_IF_FALSE)
	c.emitByte(byte(chunk.OP_POP))
	c.statement()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emitByte(byte(chunk.OP_POP))
}

func (c *Compiler) forStatement() {
	c.beginScope()
	c.consume(token.LEFT_PAREN, "Expect '(' after 'for'.")

	switch {
	case c.match(token.SEMICOLON):
		// no initializer
	case c.match(token.VAR):
		c.varDeclaration()
	default:
		c.expressionStatement()
	}

	loopStart := len(c.chunk.Code)
	exitJump := -1
	if !c.match(token.SEMICOLON) {
		c.expression()
		c.consume(token.SEMICOLON, "Expect ';' after loop condition.")

		exitJump = c.emitJump(chunk.OP_JUMP_IF_FALSE)
		c.emitByte(byte(chunk.OP_POP))
	}

	if !c.check(token.RIGHT_PAREN) {
		bodyJump := c.emitJump(chunk.OP_JUMP)

		incrementStart := len(c.chunk.Code)
		c.expression()
		c.emitByte(byte(chunk.OP_POP))
		c.consume(token.RIGHT_PAREN, "Expect ')' after for clauses.")

		c.emitLoop(loopStart)
		loopStart = incrementStart
		c.patchJump(bodyJump)
	}

	c.statement()
	c.emitLoop(loopStart)

	if exitJump != -1 {
		c.patchJump(exitJump)
		c.emitByte(byte(chunk.OP_POP))
	}

	c.endScope()
}

// synchronize implements panic-mode recovery (spec.md §4.5/§7): advance
// until just past a ';' or up to a token that starts a new statement.
func (c *Compiler) synchronize() {
	c.panicMode = false

	for c.current.Type != token.EOF {
		if c.previous.Type == token.SEMICOLON {
			return
		}
		switch c.current.Type {
		case token.CLASS, token.FUN, token.VAR, token.FOR,
			token.IF, token.WHILE, token.PRINT, token.RETURN:
			return
		}
		c.advance()
	}
}

// --- expressions -----------------------------------------------------------

func (c *Compiler) expression() {
	c.parsePrecedence(PrecAssignment)
}

func (c *Compiler) parsePrecedence(p Precedence) {
	c.advance()
	prefix := ruleFor(c.previous.Type).prefix
	if prefix == nil {
		c.error("Expect expression.")
		return
	}

	canAssign := p <= PrecAssignment
	prefix(c, canAssign)

	for p <= ruleFor(c.current.Type).precedence {
		c.advance()
		infix := ruleFor(c.previous.Type).infix
		infix(c, canAssign)
	}

	if canAssign && c.match(token.EQUAL) {
		c.error("Invalid assignment target.")
	}
}

func number(c *Compiler, _ bool) {
	v, err := strconv.ParseFloat(c.previous.Lexeme, 64)
	if err != nil {
		c.error("Invalid number literal.")
		return
	}
	c.emitConstant(value.Number(v))
}

func str(c *Compiler, _ bool) {
	lexeme := c.previous.Lexeme
	raw := lexeme[1 : len(lexeme)-1] // strip surrounding quotes
	obj := c.pool.CopyString(raw)
	c.emitConstant(value.Obj(obj))
}

func literal(c *Compiler, _ bool) {
	switch c.previous.Type {
	case token.FALSE:
		c.emitByte(byte(chunk.OP_FALSE))
	case token.TRUE:
		c.emitByte(byte(chunk.OP_TRUE))
	case token.NIL:
		c.emitByte(byte(chunk.OP_NIL))
	}
}

func grouping(c *Compiler, _ bool) {
	c.expression()
	c.consume(token.RIGHT_PAREN, "Expect ')' after expression.")
}

func unary(c *Compiler, _ bool) {
	opType := c.previous.Type
	c.parsePrecedence(PrecUnary)

	switch opType {
	case token.MINUS:
		c.emitByte(byte(chunk.OP_NEGATE))
	case token.BANG:
		c.emitByte(byte(chunk.OP_NOT))
	}
}

func binary(c *Compiler, _ bool) {
	opType := c.previous.Type
	rule := ruleFor(opType)
	c.parsePrecedence(rule.precedence + 1)

	switch opType {
	case token.BANG_EQUAL:
		c.emitBytes(byte(chunk.OP_EQUAL), byte(chunk.OP_NOT))
	case token.EQUAL_EQUAL:
		c.emitByte(byte(chunk.OP_EQUAL))
	case token.GREATER:
		c.emitByte(byte(chunk.OP_GREATER))
	case token.GREATER_EQUAL:
		c.emitBytes(byte(chunk.OP_LESS), byte(chunk.OP_NOT))
	case token.LESS:
		c.emitByte(byte(chunk.OP_LESS))
	case token.LESS_EQUAL:
		c.emitBytes(byte(chunk.OP_GREATER), byte(chunk.OP_NOT))
	case token.PLUS:
		c.emitByte(byte(chunk.OP_ADD))
	case token.MINUS:
		c.emitByte(byte(chunk.OP_SUBTRACT))
	case token.STAR:
		c.emitByte(byte(chunk.OP_MULTIPLY))
	case token.SLASH:
		c.emitByte(byte(chunk.OP_DIVIDE))
	}
}

func and_(c *Compiler, _ bool) {
	endJump := c.emitJump(chunk.OP_JUMP_IF_FALSE)
	c.emitByte(byte(chunk.OP_POP))
	c.parsePrecedence(PrecAnd)
	c.patchJump(endJump)
}

func or_(c *Compiler, _ bool) {
	elseJump := c.emitJump(chunk.OP_JUMP_IF_FALSE)
	endJump := c.emitJump(chunk.OP_JUMP)

	c.patchJump(elseJump)
	c.emitByte(byte(chunk.OP_POP))

	c.parsePrecedence(PrecOr)
	c.patchJump(endJump)
}

func variable(c *Compiler, canAssign bool) {
	c.namedVariable(c.previous, canAssign)
}

func (c *Compiler) namedVariable(name token.Token, canAssign bool) {
	var getOp, setOp chunk.OpCode
	arg := c.resolveLocal(name)
	if arg != -1 {
		getOp, setOp = chunk.OP_GET_LOCAL, chunk.OP_SET_LOCAL
	} else {
		arg = int(c.identifierConstant(name))
		getOp, setOp = chunk.OP_GET_GLOBAL, chunk.OP_SET_GLOBAL
	}

	if canAssign && c.match(token.EQUAL) {
		c.expression()
		c.emitBytes(byte(setOp), byte(arg))
	} else {
		c.emitBytes(byte(getOp), byte(arg))
	}
}

// --- scope resolution -------------------------------------------------------

func (c *Compiler) identifierConstant(name token.Token) byte {
	obj := c.pool.CopyString(name.Lexeme)
	idx, err := c.chunk.AddConstant(value.Obj(obj))
	if err != nil {
		c.error(err.Error())
		return 0
	}
	return idx
}

// resolveLocal scans locals top-to-bottom for a name match, failing if the
// match is still mid-initialization (depth == -1, spec.md §4.5).
func (c *Compiler) resolveLocal(name token.Token) int {
	for i := len(c.locals) - 1; i >= 0; i-- {
		l := c.locals[i]
		if l.name.Lexeme == name.Lexeme {
			if l.depth == -1 {
				c.error("Can't read local variable in its own initializer.")
			}
			return i
		}
	}
	return -1
}

func (c *Compiler) addLocal(name token.Token) {
	if len(c.locals) >= maxLocalCount {
		c.error("Too many local variables in function.")
		return
	}
	c.locals = append(c.locals, local{name: name, depth: -1})
}

// declareVariable implements spec.md §4.5's duplicate check: it walks the
// locals stack from the top, stopping at the first local belonging to an
// outer scope, so that `{ var a = 1; { var a = 2; } }` shadows rather than
// conflicts.
func (c *Compiler) declareVariable() {
	if c.scopeDepth == 0 {
		return
	}

	name := c.previous
	for i := len(c.locals) - 1; i >= 0; i-- {
		l := c.locals[i]
		if l.depth != -1 && l.depth < c.scopeDepth {
			break
		}
		if l.name.Lexeme == name.Lexeme {
			c.error("Already a variable with this name exists in the scope")
		}
	}

	c.addLocal(name)
}

func (c *Compiler) parseVariable(msg string) byte {
	c.consume(token.IDENTIFIER, msg)

	c.declareVariable()
	if c.scopeDepth > 0 {
		return 0
	}
	return c.identifierConstant(c.previous)
}

func (c *Compiler) markInitialized() {
	if c.scopeDepth == 0 {
		return
	}
	c.locals[len(c.locals)-1].depth = c.scopeDepth
}

func (c *Compiler) defineVariable(global byte) {
	if c.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.emitBytes(byte(chunk.OP_DEFINE_GLOBAL), global)
}
