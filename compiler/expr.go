package compiler

import (
	"strconv"

	"gunderscript/bytecode"
	"gunderscript/token"
)

// maxStringLiteralLen is the largest string literal STR_PUSH can encode:
// its length prefix is a single byte (§6.3).
const maxStringLiteralLen = 127

// precedenceOf returns an operator lexeme's binding strength per
// §4.3.2. Unrecognized single-character operators fall back to the
// lowest bucket (precedence 1) so the climbing loop still terminates;
// opcodeFor rejects them with UnknownOperator once one is actually about
// to be emitted.
func precedenceOf(lexeme string) int {
	switch lexeme {
	case "*", "/", "%":
		return 5
	case "+", "-":
		return 4
	case "<", ">", "<=", ">=":
		return 3
	case "==", "!=":
		return 2
	case "&&", "||":
		return 1
	default:
		return 1
	}
}

func opcodeFor(lexeme string) (bytecode.Opcode, bool) {
	switch lexeme {
	case "+":
		return bytecode.ADD, true
	case "-":
		return bytecode.SUB, true
	case "*":
		return bytecode.MUL, true
	case "/":
		return bytecode.DIV, true
	case "%":
		return bytecode.MOD, true
	case "<":
		return bytecode.LT, true
	case ">":
		return bytecode.GT, true
	case "<=":
		return bytecode.LTE, true
	case ">=":
		return bytecode.GTE, true
	case "==":
		return bytecode.EQUALS, true
	case "!=":
		return bytecode.NOT_EQUALS, true
	case "&&":
		return bytecode.AND, true
	case "||":
		return bytecode.OR, true
	default:
		return 0, false
	}
}

// compileExpr implements precedence climbing (shunting-yard with the
// operator stack folded into the recursion): it compiles one primary,
// then repeatedly consumes infix operators at or above minPrec,
// recursing one precedence level higher for the right-hand operand so
// that equal precedence binds left-associatively.
func (c *Compiler) compileExpr(minPrec int) *Error {
	if err := c.compileUnary(); err != nil {
		return err
	}

	for c.cur().Kind == token.Operator && c.cur().Lexeme != "=" {
		lexeme := c.cur().Lexeme
		prec := precedenceOf(lexeme)
		if prec < minPrec {
			break
		}
		op, ok := opcodeFor(lexeme)
		if !ok {
			return c.fail(UnknownOperator, lexeme)
		}
		c.advance()
		if err := c.compileExpr(prec + 1); err != nil {
			return err
		}
		c.w.WriteOp(op)
	}
	return nil
}

// compileUnary handles the one prefix operator the grammar defines,
// logical negation, then falls through to a primary.
func (c *Compiler) compileUnary() *Error {
	if c.cur().Is(token.Operator, "!") {
		c.advance()
		if err := c.compileUnary(); err != nil {
			return err
		}
		c.w.WriteOp(bytecode.NOT)
		return nil
	}
	return c.compilePrimary()
}

func (c *Compiler) compilePrimary() *Error {
	tok := c.cur()
	switch {
	case tok.Kind == token.Number:
		c.advance()
		n, err := strconv.ParseFloat(tok.Lexeme, 64)
		if err != nil {
			return c.fail(UnexpectedToken, "malformed number literal")
		}
		c.w.WriteOp(bytecode.NUM_PUSH)
		c.w.WriteF64(n)
		return nil

	case tok.Kind == token.String:
		c.advance()
		if len(tok.Lexeme) > maxStringLiteralLen {
			return newError(StringTooLong, tok.Line, tok.Lexeme)
		}
		c.w.WriteOp(bytecode.STR_PUSH)
		c.w.WriteU8(len(tok.Lexeme))
		c.w.WriteBytes([]byte(tok.Lexeme))
		return nil

	case tok.Is(token.KeyVar, "true"):
		c.advance()
		c.w.WriteOp(bytecode.BOOL_PUSH)
		c.w.WriteU8(1)
		return nil

	case tok.Is(token.KeyVar, "false"):
		c.advance()
		c.w.WriteOp(bytecode.BOOL_PUSH)
		c.w.WriteU8(0)
		return nil

	case tok.Is(token.KeyVar, "null"):
		c.advance()
		c.w.WriteOp(bytecode.NULL_PUSH)
		return nil

	case tok.Is(token.Parenthesis, "("):
		c.advance()
		if err := c.compileExpr(1); err != nil {
			return err
		}
		return c.expect(token.Parenthesis, ")", UnmatchedParenthesis)

	case tok.Kind == token.KeyVar && !token.IsKeyword(tok.Lexeme):
		c.advance()
		if c.cur().Is(token.Parenthesis, "(") {
			return c.compileCall(tok)
		}
		depth, slot, ok := c.scopes.resolve(tok.Lexeme)
		if !ok {
			return newError(UndefinedVariable, tok.Line, tok.Lexeme)
		}
		c.w.WriteOp(bytecode.VAR_PUSH)
		c.w.WriteU8(depth)
		c.w.WriteU8(slot)
		return nil

	default:
		return c.fail(UnexpectedToken, "expected expression")
	}
}

// compileCall compiles a call to nameTok(args...). Native callbacks are
// probed before script functions (§4.3.4); Current() is already past
// nameTok and sitting on "(".
func (c *Compiler) compileCall(nameTok token.Token) *Error {
	c.advance() // "("

	argCount := 0
	if !c.cur().Is(token.Parenthesis, ")") {
		for {
			if err := c.compileExpr(1); err != nil {
				return err
			}
			argCount++
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

	if idx, ok := c.callbacks.CallbackIndex(nameTok.Lexeme); ok {
		c.w.WriteOp(bytecode.CALL_NATIVE)
		c.w.WriteU8(argCount)
		c.w.WriteI32(int32(idx))
		return nil
	}

	fi, ok := c.functions[nameTok.Lexeme]
	if !ok {
		return newError(UndefinedFunction, nameTok.Line, nameTok.Lexeme)
	}
	if fi.argCount != argCount {
		return newError(WrongArgumentCount, nameTok.Line, nameTok.Lexeme)
	}

	c.w.WriteOp(bytecode.CALL_SCRIPT)
	totalSlotsOffset := c.w.Len()
	c.w.WriteU8(0) // patched once callee finishes compiling
	c.w.WriteU8(argCount)
	entryOffset := c.w.Len()
	c.w.WriteI32(0) // patched once callee finishes compiling
	c.pending = append(c.pending, pendingCall{
		totalSlotsOffset: totalSlotsOffset,
		entryOffset:      entryOffset,
		callee:           nameTok.Lexeme,
	})
	return nil
}
