/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

// Package ps implements a small subset of the postscript language used in PDF for type 4 functions.
// Only objects are integers, real numbers, and boolean values only.
package ps

import (
	"fmt"
)

// PSObject is a Postscript object: a number, bool, operand, or program.
type PSObject interface {
	Duplicate() PSObject
	DebugString() string // Only for debugging.
	String() string
}

// PSInteger is an integer Postscript object.
type PSInteger struct {
	Val int
}

func (this *PSInteger) Duplicate() PSObject {
	obj := PSInteger{}
	obj.Val = this.Val
	return &obj
}

func (this *PSInteger) DebugString() string {
	return fmt.Sprintf("int:%d", this.Val)
}

func (this *PSInteger) String() string {
	return fmt.Sprintf("%d", this.Val)
}

// PSReal is a real-number Postscript object.
type PSReal struct {
	Val float64
}

func (this *PSReal) DebugString() string {
	return fmt.Sprintf("real:%.5f", this.Val)
}

func (this *PSReal) String() string {
	return fmt.Sprintf("%.5f", this.Val)
}

func (this *PSReal) Duplicate() PSObject {
	obj := PSReal{}
	obj.Val = this.Val
	return &obj
}

// PSBoolean is a boolean Postscript object.
type PSBoolean struct {
	Val bool
}

func (this *PSBoolean) DebugString() string {
	return fmt.Sprintf("bool:%v", this.Val)
}

func (this *PSBoolean) String() string {
	return fmt.Sprintf("%v", this.Val)
}

func (this *PSBoolean) Duplicate() PSObject {
	obj := PSBoolean{}
	obj.Val = this.Val
	return &obj
}

// PSProgram is a series of PS objects (arguments, commands, nested programs etc).
type PSProgram []PSObject

// NewPSProgram returns an empty PSProgram.
func NewPSProgram() *PSProgram {
	return &PSProgram{}
}

// Append appends obj to the program.
func (this *PSProgram) Append(obj PSObject) {
	*this = append(*this, obj)
}

func (this *PSProgram) DebugString() string {
	s := "{ "
	for _, obj := range *this {
		s += obj.DebugString()
		s += " "
	}
	s += "}"

	return s
}

func (this *PSProgram) String() string {
	s := "{ "
	for _, obj := range *this {
		s += obj.String()
		s += " "
	}
	s += "}"

	return s
}

func (this *PSProgram) Duplicate() PSObject {
	prog := &PSProgram{}
	for _, obj := range *this {
		prog.Append(obj.Duplicate())
	}
	return prog
}

// Exec runs the program against stack, pushing literals and dispatching operands.
func (this *PSProgram) Exec(stack *PSStack) error {
	for _, obj := range *this {
		var err error
		if number, isInt := obj.(*PSInteger); isInt {
			err = stack.Push(number)
		} else if number, isReal := obj.(*PSReal); isReal {
			err = stack.Push(number)
		} else if val, isBool := obj.(*PSBoolean); isBool {
			err = stack.Push(val)
		} else if function, isFunc := obj.(*PSProgram); isFunc {
			err = stack.Push(function)
		} else if op, isOp := obj.(*PSOperand); isOp {
			err = op.Exec(stack)
		} else {
			return ErrTypeCheck
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// PSOperand is a named Postscript operator, e.g. "add", "dup", "roll".
type PSOperand string

func (this *PSOperand) DebugString() string {
	return fmt.Sprintf("op:'%s'", *this)
}

func (this *PSOperand) String() string {
	return fmt.Sprintf("%s", *this)
}

func (this *PSOperand) Duplicate() PSObject {
	s := *this
	return &s
}

// Exec dispatches the operand to its implementation in operations.go.
func (this *PSOperand) Exec(stack *PSStack) error {
	switch *this {
	case "abs":
		return this.abs(stack)
	case "add":
		return this.add(stack)
	case "and":
		return this.and(stack)
	case "atan":
		return this.atan(stack)
	case "bitshift":
		return this.bitshift(stack)
	case "ceiling":
		return this.ceiling(stack)
	case "copy":
		return this.copy(stack)
	case "cos":
		return this.cos(stack)
	case "cvi":
		return this.cvi(stack)
	case "cvr":
		return this.cvr(stack)
	case "div":
		return this.div(stack)
	case "dup":
		return this.dup(stack)
	case "eq":
		return this.eq(stack)
	case "exch":
		return this.exch(stack)
	case "exp":
		return this.exp(stack)
	case "floor":
		return this.floor(stack)
	case "ge":
		return this.ge(stack)
	case "gt":
		return this.gt(stack)
	case "idiv":
		return this.idiv(stack)
	case "if":
		return this.ifCondition(stack)
	case "ifelse":
		return this.ifelse(stack)
	case "index":
		return this.index(stack)
	case "le":
		return this.le(stack)
	case "log":
		return this.log(stack)
	case "ln":
		return this.ln(stack)
	case "lt":
		return this.lt(stack)
	case "mod":
		return this.mod(stack)
	case "mul":
		return this.mul(stack)
	case "ne":
		return this.ne(stack)
	case "neg":
		return this.neg(stack)
	case "not":
		return this.not(stack)
	case "or":
		return this.or(stack)
	case "pop":
		return this.pop(stack)
	case "round":
		return this.round(stack)
	case "roll":
		return this.roll(stack)
	case "sin":
		return this.sin(stack)
	case "sqrt":
		return this.sqrt(stack)
	case "sub":
		return this.sub(stack)
	case "truncate":
		return this.truncate(stack)
	case "xor":
		return this.xor(stack)
	}
	return ErrUnsupportedOperand
}
