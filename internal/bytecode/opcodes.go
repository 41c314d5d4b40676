package bytecode

import "fmt"

type OpCode byte

const (
	OpPushValue OpCode = iota
	OpPopValue
	OpRetrieveValue
	OpAssignVariable
	OpStoreIndex
	OpBinary
	OpComparison
	OpUnary
	OpConditionalJump
	OpJump
	OpPushLoopBounds
	OpPopLoopBounds
	OpBreak
	OpContinue
	OpEnterScope
	OpExitScope
	OpPrint
	OpLen
	OpType
	OpInput
	OpIndexAccess
	OpListSlice
	OpCreateList
	OpMethodCall
	OpCallBuiltin
	OpReturn
	OpCallUserFunction
	OpDefineFunction
	OpInterpolateFString
	OpHighlightExpression
	OpHighlightStatement
)

var opNames = [...]string{
	OpPushValue:           "PushValue",
	OpPopValue:            "PopValue",
	OpRetrieveValue:       "RetrieveValue",
	OpAssignVariable:      "AssignVariable",
	OpStoreIndex:          "StoreIndex",
	OpBinary:              "BinaryOp",
	OpComparison:          "ComparisonOp",
	OpUnary:               "UnaryOp",
	OpConditionalJump:     "ConditionalJump",
	OpJump:                "Jump",
	OpPushLoopBounds:      "PushLoopBounds",
	OpPopLoopBounds:       "PopLoopBounds",
	OpBreak:               "Break",
	OpContinue:            "Continue",
	OpEnterScope:          "EnterScope",
	OpExitScope:           "ExitScope",
	OpPrint:               "Print",
	OpLen:                 "Len",
	OpType:                "Type",
	OpInput:               "Input",
	OpIndexAccess:         "IndexAccess",
	OpListSlice:           "ListSlice",
	OpCreateList:          "CreateList",
	OpMethodCall:          "MethodCall",
	OpCallBuiltin:         "CallBuiltin",
	OpReturn:              "Return",
	OpCallUserFunction:    "CallUserFunction",
	OpDefineFunction:      "DefineFunction",
	OpInterpolateFString:  "InterpolateFString",
	OpHighlightExpression: "HighlightExpression",
	OpHighlightStatement:  "HighlightStatement",
}

func (op OpCode) String() string {
	if int(op) < len(opNames) && opNames[op] != "" {
		return opNames[op]
	}
	return fmt.Sprintf("OpCode(%d)", byte(op))
}

// stackEffect is the fixed (pops, pushes) pair of each opcode whose arity
// does not depend on its operands. Operand-dependent opcodes are absent.
var stackEffect = map[OpCode][2]int{
	OpPushValue:           {0, 1},
	OpPopValue:            {1, 0},
	OpRetrieveValue:       {0, 1},
	OpStoreIndex:          {3, 0},
	OpBinary:              {2, 1},
	OpComparison:          {2, 1},
	OpUnary:               {1, 1},
	OpConditionalJump:     {1, 0},
	OpJump:                {0, 0},
	OpPushLoopBounds:      {0, 0},
	OpPopLoopBounds:       {0, 0},
	OpBreak:               {0, 0},
	OpContinue:            {0, 0},
	OpEnterScope:          {0, 0},
	OpLen:                 {1, 1},
	OpType:                {1, 1},
	OpIndexAccess:         {2, 1},
	OpListSlice:           {4, 1},
	OpDefineFunction:      {0, 0},
	OpInterpolateFString:  {0, 1},
	OpHighlightExpression: {0, 0},
	OpHighlightStatement:  {0, 0},
}

// StackEffect returns the number of evaluation-stack slots an opcode pops
// and pushes. ok is false for opcodes whose effect depends on operands.
func StackEffect(op OpCode) (pops, pushes int, ok bool) {
	e, ok := stackEffect[op]
	return e[0], e[1], ok
}
