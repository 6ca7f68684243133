// Package compiler implements Gunderscript's single-pass
// recursive-descent compiler: it walks the token stream once and emits
// bytecode directly, never materializing an AST. Expressions are
// compiled with Dijkstra's shunting-yard algorithm via precedence
// climbing (§4.3).
package compiler

import (
	"gunderscript/bytecode"
	"gunderscript/lexer"
	"gunderscript/token"
	"gunderscript/vm"
)

// CallbackResolver lets the compiler ask the VM, at compile time, which
// native callbacks are registered and under what index (§6.4). *vm.VM
// satisfies this directly.
type CallbackResolver interface {
	CallbackIndex(name string) (int, bool)
}

// Compiler compiles one Gunderscript source string into a vm.Program. A
// Compiler is single-use: construct one with New per compilation.
type Compiler struct {
	callbacks CallbackResolver

	lex *lexer.Lexer
	w   *bytecode.Writer

	functions map[string]*funcInfo
	order     []string
	pending   []pendingCall

	scopes scopeStack
}

// New constructs a Compiler that resolves native calls against
// callbacks.
func New(callbacks CallbackResolver) *Compiler {
	return &Compiler{
		callbacks: callbacks,
		functions: map[string]*funcInfo{},
	}
}

// Compile compiles src to a loadable Program. It performs a lightweight
// signature pre-scan first (so forward references to script functions
// resolve and their arity can be checked before their bodies are ever
// compiled), then compiles every function body in source order,
// finally back-patching every CALL_SCRIPT instruction whose callee
// wasn't yet known.
func (c *Compiler) Compile(src string) (vm.Program, error) {
	if err := c.prescan(src); err != nil {
		return vm.Program{}, err
	}

	c.lex = lexer.New(src)
	c.w = bytecode.NewWriter()

	for c.cur().Kind != token.EOF {
		if err := c.compileFuncDef(); err != nil {
			return vm.Program{}, err
		}
	}
	if lerr := c.lex.Err(); lerr != nil {
		return vm.Program{}, newError(LexerError, lerr.Line, lerr.Message)
	}

	c.backpatchCalls()

	funcs := make([]vm.Function, 0, len(c.order))
	for _, name := range c.order {
		fi := c.functions[name]
		if fi.exported {
			funcs = append(funcs, vm.Function{
				Name:       fi.name,
				Entry:      fi.entry,
				ArgCount:   fi.argCount,
				TotalSlots: fi.totalSlots,
				Exported:   true,
			})
		}
	}
	return vm.Program{Code: c.w.Bytes(), Functions: funcs}, nil
}

func (c *Compiler) backpatchCalls() {
	for _, p := range c.pending {
		fi := c.functions[p.callee]
		c.w.PatchU8(p.totalSlotsOffset, fi.totalSlots)
		c.w.PatchI32(p.entryOffset, fi.entry)
	}
}

// --- token-stream helpers ---

func (c *Compiler) cur() token.Token  { return c.lex.Current() }
func (c *Compiler) peek() token.Token { return c.lex.Peek() }
func (c *Compiler) advance() token.Token {
	return c.lex.Advance()
}

func (c *Compiler) fail(code ErrCode, detail string) *Error {
	return newError(code, c.cur().Line, detail)
}

// expect consumes the current token if it matches kind/lexeme, else
// fails with code.
func (c *Compiler) expect(kind token.Kind, lexeme string, code ErrCode) *Error {
	if !c.cur().Is(kind, lexeme) {
		return c.fail(code, "expected "+lexeme)
	}
	c.advance()
	return nil
}

// --- signature pre-scan (phase one) ---

func (c *Compiler) prescan(src string) *Error {
	l := lexer.New(src)

	for l.Current().Kind != token.EOF {
		if !l.Current().Is(token.KeyVar, "function") {
			return newError(UnexpectedToken, l.Current().Line, "expected 'function'")
		}
		l.Advance()

		exported := false
		if l.Current().Is(token.KeyVar, "exported") {
			exported = true
			l.Advance()
		}

		nameTok := l.Current()
		if nameTok.Kind != token.KeyVar || token.IsKeyword(nameTok.Lexeme) {
			return newError(ExpectedFunctionName, nameTok.Line, "")
		}
		l.Advance()

		if _, exists := c.functions[nameTok.Lexeme]; exists {
			return newError(DuplicateFunction, nameTok.Line, nameTok.Lexeme)
		}

		if !l.Current().Is(token.Parenthesis, "(") {
			return newError(ExpectedOpenParen, l.Current().Line, "")
		}
		l.Advance()

		argCount := 0
		if !l.Current().Is(token.Parenthesis, ")") {
			for {
				argTok := l.Current()
				if argTok.Kind != token.KeyVar || token.IsKeyword(argTok.Lexeme) {
					return newError(ExpectedIdentifier, argTok.Line, "")
				}
				argCount++
				l.Advance()
				if l.Current().Is(token.ArgDelim, ",") {
					l.Advance()
					continue
				}
				break
			}
		}
		if !l.Current().Is(token.Parenthesis, ")") {
			return newError(ExpectedOpenParen, l.Current().Line, "expected ')'")
		}
		l.Advance()

		if !l.Current().Is(token.Brackets, "{") {
			return newError(ExpectedOpenBracket, l.Current().Line, "")
		}
		if lerr := skipBlock(l); lerr != nil {
			return newError(LexerError, lerr.Line, lerr.Message)
		}

		c.functions[nameTok.Lexeme] = &funcInfo{name: nameTok.Lexeme, argCount: argCount, exported: exported}
		c.order = append(c.order, nameTok.Lexeme)
	}
	if lerr := l.Err(); lerr != nil {
		return newError(LexerError, lerr.Line, lerr.Message)
	}
	return nil
}

// skipBlock consumes a balanced "{" ... "}" run; Current() must already
// be the opening brace. It leaves Current() on the token after the
// matching close brace.
func skipBlock(l *lexer.Lexer) *lexer.Error {
	depth := 0
	for {
		tok := l.Current()
		if tok.Kind == token.EOF {
			return &lexer.Error{Message: "unterminated block", Line: tok.Line}
		}
		if tok.Is(token.Brackets, "{") {
			depth++
		} else if tok.Is(token.Brackets, "}") {
			depth--
		}
		l.Advance()
		if depth == 0 {
			return nil
		}
		if le := l.Err(); le != nil {
			return le
		}
	}
}

// --- phase two: function bodies ---

func (c *Compiler) compileFuncDef() *Error {
	if err := c.expect(token.KeyVar, "function", UnexpectedToken); err != nil {
		return err
	}
	if c.cur().Is(token.KeyVar, "exported") {
		c.advance()
	}

	nameTok := c.cur()
	c.advance()
	fi := c.functions[nameTok.Lexeme]
	fi.entry = int32(c.w.Len())

	if err := c.expect(token.Parenthesis, "(", ExpectedOpenParen); err != nil {
		return err
	}

	fnScope := newScope()
	c.scopes = scopeStack{fnScope}

	if !c.cur().Is(token.Parenthesis, ")") {
		for {
			argTok := c.cur()
			c.advance()
			if _, dup := fnScope.declare(argTok.Lexeme); dup {
				return newError(DuplicateVariable, argTok.Line, argTok.Lexeme)
			}
			if c.cur().Is(token.ArgDelim, ",") {
				c.advance()
				continue
			}
			break
		}
	}
	if err := c.expect(token.Parenthesis, ")", ExpectedOpenParen); err != nil {
		return err
	}

	if err := c.compileFunctionBody(); err != nil {
		return err
	}

	// Implicit return for falling off the end of the function body: push
	// Null as the result and unwind the function's own frame.
	c.w.WriteOp(bytecode.NULL_PUSH)
	c.w.WriteOp(bytecode.FRM_POP)

	fi.totalSlots = fnScope.nextSlot
	c.scopes = nil
	return nil
}

// compileFunctionBody compiles the function's own top-level Block. Its
// frame is the one CALL_SCRIPT pushes at the call site, so unlike a
// nested Block it emits no FRM_PUSH/FRM_POP of its own.
func (c *Compiler) compileFunctionBody() *Error {
	if err := c.expect(token.Brackets, "{", ExpectedOpenBracket); err != nil {
		return err
	}
	if err := c.compileVarDecls(c.scopes[len(c.scopes)-1]); err != nil {
		return err
	}
	for !c.cur().Is(token.Brackets, "}") {
		if c.cur().Kind == token.EOF {
			return c.fail(ExpectedCloseBracket, "")
		}
		if err := c.compileStatement(); err != nil {
			return err
		}
	}
	return c.expect(token.Brackets, "}", ExpectedCloseBracket)
}

func (c *Compiler) compileVarDecls(s *scope) *Error {
	for c.cur().Is(token.KeyVar, "var") {
		c.advance()
		nameTok := c.cur()
		if nameTok.Kind != token.KeyVar || token.IsKeyword(nameTok.Lexeme) {
			return c.fail(ExpectedVarName, "")
		}
		c.advance()
		if _, dup := s.declare(nameTok.Lexeme); dup {
			return newError(DuplicateVariable, nameTok.Line, nameTok.Lexeme)
		}
		if err := c.expect(token.EndStatement, ";", ExpectedEndStatement); err != nil {
			return err
		}
	}
	return nil
}

// compileNestedBlock compiles a Block used as a Statement: its own
// scope and its own explicit runtime frame.
func (c *Compiler) compileNestedBlock() *Error {
	if err := c.expect(token.Brackets, "{", ExpectedOpenBracket); err != nil {
		return err
	}
	s := newScope()
	c.scopes = append(c.scopes, s)
	if err := c.compileVarDecls(s); err != nil {
		return err
	}

	frmPushAt := c.w.Len()
	c.w.WriteOp(bytecode.FRM_PUSH)
	slotsOffset := c.w.Len()
	c.w.WriteU8(0)
	_ = frmPushAt

	for !c.cur().Is(token.Brackets, "}") {
		if c.cur().Kind == token.EOF {
			return c.fail(ExpectedCloseBracket, "")
		}
		if err := c.compileStatement(); err != nil {
			return err
		}
	}
	if err := c.expect(token.Brackets, "}", ExpectedCloseBracket); err != nil {
		return err
	}

	c.w.PatchU8(slotsOffset, s.nextSlot)
	c.w.WriteOp(bytecode.FRM_POP)
	c.scopes = c.scopes[:len(c.scopes)-1]
	return nil
}

func (c *Compiler) compileStatement() *Error {
	switch {
	case c.cur().Is(token.Brackets, "{"):
		return c.compileNestedBlock()
	case c.cur().Is(token.KeyVar, "if"):
		return c.compileIf()
	case c.cur().Is(token.KeyVar, "while"):
		return c.compileWhile()
	case c.cur().Is(token.KeyVar, "do"):
		return c.compileDoWhile()
	case c.cur().Is(token.KeyVar, "return"):
		return c.compileReturn()
	default:
		return c.compileExpressionStatement()
	}
}

func (c *Compiler) compileReturn() *Error {
	c.advance() // "return"
	if err := c.compileExpr(1); err != nil {
		return err
	}
	if err := c.expect(token.EndStatement, ";", ExpectedEndStatement); err != nil {
		return err
	}
	for range c.scopes {
		c.w.WriteOp(bytecode.FRM_POP)
	}
	return nil
}

func (c *Compiler) compileExpressionStatement() *Error {
	if c.cur().Kind == token.KeyVar && !token.IsKeyword(c.cur().Lexeme) && c.peek().Is(token.Operator, "=") {
		if err := c.compileAssignment(); err != nil {
			return err
		}
	} else {
		if err := c.compileExpr(1); err != nil {
			return err
		}
	}
	if err := c.expect(token.EndStatement, ";", ExpectedEndStatement); err != nil {
		return err
	}
	c.w.WriteOp(bytecode.POP)
	return nil
}

func (c *Compiler) compileAssignment() *Error {
	nameTok := c.cur()
	c.advance()
	c.advance() // "="

	depth, slot, ok := c.scopes.resolve(nameTok.Lexeme)
	if !ok {
		return newError(UndefinedVariable, nameTok.Line, nameTok.Lexeme)
	}
	if err := c.compileExpr(1); err != nil {
		return err
	}
	c.w.WriteOp(bytecode.VAR_STOR)
	c.w.WriteU8(depth)
	c.w.WriteU8(slot)
	return nil
}

// --- control flow (§4.3.5) ---

func (c *Compiler) compileIf() *Error {
	c.advance() // "if"
	if err := c.expect(token.Parenthesis, "(", ExpectedOpenParen); err != nil {
		return err
	}
	if err := c.compileExpr(1); err != nil {
		return err
	}
	if err := c.expect(token.Parenthesis, ")", ExpectedOpenParen); err != nil {
		return err
	}

	c.w.WriteOp(bytecode.FCOND_GOTO)
	falsePatch := c.w.Len()
	c.w.WriteI32(0)

	if err := c.compileStatement(); err != nil {
		return err
	}

	if c.cur().Is(token.KeyVar, "else") {
		c.w.WriteOp(bytecode.GOTO)
		endPatch := c.w.Len()
		c.w.WriteI32(0)

		c.w.PatchI32(falsePatch, int32(c.w.Len()))

		c.advance() // "else"
		if err := c.compileStatement(); err != nil {
			return err
		}
		c.w.PatchI32(endPatch, int32(c.w.Len()))
		return nil
	}

	c.w.PatchI32(falsePatch, int32(c.w.Len()))
	return nil
}

func (c *Compiler) compileWhile() *Error {
	c.advance() // "while"
	loopStart := c.w.Len()
	if err := c.expect(token.Parenthesis, "(", ExpectedOpenParen); err != nil {
		return err
	}
	if err := c.compileExpr(1); err != nil {
		return err
	}
	if err := c.expect(token.Parenthesis, ")", ExpectedOpenParen); err != nil {
		return err
	}

	c.w.WriteOp(bytecode.FCOND_GOTO)
	exitPatch := c.w.Len()
	c.w.WriteI32(0)

	if err := c.compileStatement(); err != nil {
		return err
	}

	c.w.WriteOp(bytecode.GOTO)
	c.w.WriteI32(int32(loopStart))

	c.w.PatchI32(exitPatch, int32(c.w.Len()))
	return nil
}

func (c *Compiler) compileDoWhile() *Error {
	c.advance() // "do"
	loopStart := c.w.Len()
	if err := c.compileStatement(); err != nil {
		return err
	}
	if err := c.expect(token.KeyVar, "while", MalformedControlFlow); err != nil {
		return err
	}
	if err := c.expect(token.Parenthesis, "(", ExpectedOpenParen); err != nil {
		return err
	}
	if err := c.compileExpr(1); err != nil {
		return err
	}
	if err := c.expect(token.Parenthesis, ")", ExpectedOpenParen); err != nil {
		return err
	}
	if err := c.expect(token.EndStatement, ";", ExpectedEndStatement); err != nil {
		return err
	}

	c.w.WriteOp(bytecode.TCOND_GOTO)
	c.w.WriteI32(int32(loopStart))
	return nil
}
