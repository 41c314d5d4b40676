package vm

import (
	"fmt"
	"strings"

	"arrayviz/internal/bytecode"
)

// Command is one executable instruction. Only the operand fields its Op
// reads are set.
type Command struct {
	Op bytecode.OpCode

	Value    Value            // PushValue
	Name     string           // variable, function, method or builtin name; operator symbol
	N        int              // jump distance, argument or element count
	Iterate  bool             // AssignVariable inside a for-loop header
	Continue int              // PushLoopBounds, relative to the command
	Break    int              // PushLoopBounds, relative to the command
	Function *Function        // DefineFunction
	Template string           // InterpolateFString
	Region   *bytecode.Region // HighlightExpression, HighlightStatement

	Debug bytecode.DebugInfo
}

func (c Command) String() string {
	op := c.Op.String()
	switch c.Op {
	case bytecode.OpPushValue:
		return fmt.Sprintf("%s %s", op, c.Value.Repr())
	case bytecode.OpRetrieveValue, bytecode.OpBinary, bytecode.OpComparison, bytecode.OpUnary:
		return fmt.Sprintf("%s %s", op, c.Name)
	case bytecode.OpAssignVariable:
		if c.Iterate {
			return fmt.Sprintf("%s %s (iterate)", op, c.Name)
		}
		return fmt.Sprintf("%s %s", op, c.Name)
	case bytecode.OpJump, bytecode.OpConditionalJump:
		return fmt.Sprintf("%s %+d", op, c.N)
	case bytecode.OpPushLoopBounds:
		return fmt.Sprintf("%s continue=%+d break=%+d", op, c.Continue, c.Break)
	case bytecode.OpPrint, bytecode.OpInput, bytecode.OpCreateList:
		return fmt.Sprintf("%s %d", op, c.N)
	case bytecode.OpMethodCall, bytecode.OpCallBuiltin, bytecode.OpCallUserFunction:
		return fmt.Sprintf("%s %s/%d", op, c.Name, c.N)
	case bytecode.OpDefineFunction:
		return fmt.Sprintf("%s %s(%s)", op, c.Function.Name, strings.Join(c.Function.Params, ", "))
	case bytecode.OpInterpolateFString:
		return fmt.Sprintf("%s %q", op, c.Template)
	case bytecode.OpHighlightExpression, bytecode.OpHighlightStatement:
		if c.Region != nil {
			return fmt.Sprintf("%s %q", op, c.Region.Text)
		}
	}
	return op
}

// Program is a compiled command sequence plus the source it came from.
type Program struct {
	Code   []Command
	Source string
	Lines  []string
}

// NewProgram builds a program over code compiled from source.
func NewProgram(code []Command, source string) *Program {
	return &Program{
		Code:   code,
		Source: source,
		Lines:  strings.Split(strings.TrimSuffix(source, "\n"), "\n"),
	}
}

// Disassemble renders code one command per line, descending into function
// bodies.
func Disassemble(code []Command) string {
	var sb strings.Builder
	disassemble(&sb, code, "")
	return sb.String()
}

func disassemble(sb *strings.Builder, code []Command, indent string) {
	for i, c := range code {
		fmt.Fprintf(sb, "%s%04d %-4d %s\n", indent, i, c.Debug.Line, c)
		if c.Op == bytecode.OpDefineFunction && c.Function != nil {
			disassemble(sb, c.Function.Body, indent+"    ")
		}
	}
}
