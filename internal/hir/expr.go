package hir

import "github.com/paiml/depyler/internal/source"

// ExprKind enumerates HIR expression kinds.
type ExprKind uint8

const (
	// ExprLiteral represents int, float, string, bytes, bool and None
	// literals.
	ExprLiteral ExprKind = iota
	// ExprVar references a variable by name.
	ExprVar
	// ExprBinary represents binary operators including comparisons and
	// membership tests.
	ExprBinary
	// ExprUnary represents not, negation and bitwise inversion.
	ExprUnary
	// ExprCall is a free-function call by name.
	ExprCall
	// ExprMethodCall is a call dispatched on a receiver expression.
	ExprMethodCall
	// ExprAttribute reads a field or module member.
	ExprAttribute
	// ExprIndex is subscription with a single key.
	ExprIndex
	// ExprSlice is subscription with a start:stop:step range.
	ExprSlice
	// ExprList is a list literal.
	ExprList
	// ExprTuple is a tuple literal.
	ExprTuple
	// ExprDict is a dict literal.
	ExprDict
	// ExprSet is a set literal.
	ExprSet
	// ExprFrozenSet is frozenset(...) over a literal.
	ExprFrozenSet
	// ExprComp covers list/set/dict/generator comprehensions.
	ExprComp
	// ExprLambda is an anonymous function.
	ExprLambda
	// ExprNamed is a walrus binding (name := value).
	ExprNamed
	// ExprIfExp is the ternary conditional expression.
	ExprIfExp
	// ExprFString is an interpolated string.
	ExprFString
	// ExprBorrow adorns an expression with & or &mut. Never produced by
	// lowering; codegen inserts it from borrow analysis.
	ExprBorrow
	// ExprAwait is surfaced for async signatures but not transformed.
	ExprAwait
	// ExprStarred is *expr in call argument position.
	ExprStarred
)

func (k ExprKind) String() string {
	switch k {
	case ExprLiteral:
		return "Literal"
	case ExprVar:
		return "Var"
	case ExprBinary:
		return "Binary"
	case ExprUnary:
		return "Unary"
	case ExprCall:
		return "Call"
	case ExprMethodCall:
		return "MethodCall"
	case ExprAttribute:
		return "Attribute"
	case ExprIndex:
		return "Index"
	case ExprSlice:
		return "Slice"
	case ExprList:
		return "List"
	case ExprTuple:
		return "Tuple"
	case ExprDict:
		return "Dict"
	case ExprSet:
		return "Set"
	case ExprFrozenSet:
		return "FrozenSet"
	case ExprComp:
		return "Comp"
	case ExprLambda:
		return "Lambda"
	case ExprNamed:
		return "Named"
	case ExprIfExp:
		return "IfExp"
	case ExprFString:
		return "FString"
	case ExprBorrow:
		return "Borrow"
	case ExprAwait:
		return "Await"
	case ExprStarred:
		return "Starred"
	default:
		return "Unknown"
	}
}

// Expr is an HIR expression.
type Expr struct {
	Kind ExprKind
	Span source.Span
	Data ExprData
}

// ExprData is the interface for kind-specific payloads.
type ExprData interface {
	exprData()
}

// BinOp enumerates binary operators after desugaring. Comparisons appear
// pairwise (chains are split during lowering).
type BinOp uint8

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpDiv
	OpFloorDiv
	OpMod
	OpPow
	OpMatMul
	OpLShift
	OpRShift
	OpBitAnd
	OpBitOr
	OpBitXor
	OpEq
	OpNotEq
	OpLt
	OpLtE
	OpGt
	OpGtE
	OpAnd
	OpOr
	OpIn
	OpNotIn
	OpIs
	OpIsNot
)

func (op BinOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpFloorDiv:
		return "//"
	case OpMod:
		return "%"
	case OpPow:
		return "**"
	case OpMatMul:
		return "@"
	case OpLShift:
		return "<<"
	case OpRShift:
		return ">>"
	case OpBitAnd:
		return "&"
	case OpBitOr:
		return "|"
	case OpBitXor:
		return "^"
	case OpEq:
		return "=="
	case OpNotEq:
		return "!="
	case OpLt:
		return "<"
	case OpLtE:
		return "<="
	case OpGt:
		return ">"
	case OpGtE:
		return ">="
	case OpAnd:
		return "and"
	case OpOr:
		return "or"
	case OpIn:
		return "in"
	case OpNotIn:
		return "not in"
	case OpIs:
		return "is"
	case OpIsNot:
		return "is not"
	default:
		return "?"
	}
}

// IsComparison reports ==, !=, <, <=, >, >=.
func (op BinOp) IsComparison() bool {
	return op >= OpEq && op <= OpGtE
}

type UnOp uint8

const (
	OpNot UnOp = iota
	OpNeg
	OpPos
	OpBitNot
)

func (op UnOp) String() string {
	switch op {
	case OpNot:
		return "not"
	case OpNeg:
		return "-"
	case OpPos:
		return "+"
	case OpBitNot:
		return "~"
	default:
		return "?"
	}
}

type LitKind uint8

const (
	LitInt LitKind = iota
	LitFloat
	LitStr
	LitBytes
	LitBool
	LitNone
)

// LiteralData carries a constant. Raw keeps the source spelling so the
// emitter can preserve exact numeric forms.
type LiteralData struct {
	Kind  LitKind
	Int   int64
	Float float64
	Str   string
	Bool  bool
	Raw   string
}

func (LiteralData) exprData() {}

type VarData struct {
	Name string
}

func (VarData) exprData() {}

type BinaryData struct {
	Op    BinOp
	Left  *Expr
	Right *Expr
}

func (BinaryData) exprData() {}

type UnaryData struct {
	Op      UnOp
	Operand *Expr
}

func (UnaryData) exprData() {}

// Kwarg is a keyword argument at a call site.
type Kwarg struct {
	Name  string
	Value *Expr
}

// CallData is a call to a named function. FuncExpr is set instead of Func
// when the callee is not a plain name (for example a call on a call result).
type CallData struct {
	Func     string
	FuncExpr *Expr
	Args     []*Expr
	Kwargs   []Kwarg
}

func (CallData) exprData() {}

// MethodCallData is receiver.method(args).
type MethodCallData struct {
	Object *Expr
	Method string
	Args   []*Expr
	Kwargs []Kwarg
}

func (MethodCallData) exprData() {}

type AttributeData struct {
	Value *Expr
	Attr  string
}

func (AttributeData) exprData() {}

type IndexData struct {
	Base  *Expr
	Index *Expr
}

func (IndexData) exprData() {}

// SliceData is base[start:stop:step]; any bound may be nil.
type SliceData struct {
	Base  *Expr
	Start *Expr
	Stop  *Expr
	Step  *Expr
}

func (SliceData) exprData() {}

type ListData struct {
	Elems []*Expr
}

func (ListData) exprData() {}

type TupleData struct {
	Elems []*Expr
}

func (TupleData) exprData() {}

type SetData struct {
	Elems []*Expr
}

func (SetData) exprData() {}

type FrozenSetData struct {
	Elems []*Expr
}

func (FrozenSetData) exprData() {}

// DictData pairs keys with values. A nil key marks a **splat entry whose
// value is merged in.
type DictData struct {
	Keys   []*Expr
	Values []*Expr
}

func (DictData) exprData() {}

type CompKind uint8

const (
	CompList CompKind = iota
	CompSet
	CompDict
	CompGenerator
)

func (k CompKind) String() string {
	switch k {
	case CompList:
		return "list"
	case CompSet:
		return "set"
	case CompDict:
		return "dict"
	case CompGenerator:
		return "generator"
	default:
		return "?"
	}
}

// CompClause is one `for target in iter [if cond]*` link of a
// comprehension chain.
type CompClause struct {
	Target Target
	Iter   *Expr
	Conds  []*Expr
}

// CompData preserves the full generator chain. Value is the dict value
// expression, nil for non-dict kinds.
type CompData struct {
	Kind    CompKind
	Elt     *Expr
	Value   *Expr
	Clauses []CompClause
}

func (CompData) exprData() {}

type LambdaData struct {
	Params []Param
	Body   *Expr
}

func (LambdaData) exprData() {}

type NamedData struct {
	Name  string
	Value *Expr
}

func (NamedData) exprData() {}

type IfExpData struct {
	Cond *Expr
	Then *Expr
	Else *Expr
}

func (IfExpData) exprData() {}

// FStringPart is literal text (Expr nil) or one interpolation with an
// optional format spec.
type FStringPart struct {
	Text   string
	Expr   *Expr
	Format string
}

type FStringData struct {
	Parts []FStringPart
}

func (FStringData) exprData() {}

// BorrowData wraps an expression in & or &mut during code generation.
type BorrowData struct {
	Expr *Expr
	Mut  bool
}

func (BorrowData) exprData() {}

type AwaitData struct {
	Value *Expr
}

func (AwaitData) exprData() {}

type StarredData struct {
	Value *Expr
}

func (StarredData) exprData() {}

// Helper constructors used by lowering and tests.

func NewLiteral(sp source.Span, lit LiteralData) *Expr {
	return &Expr{Kind: ExprLiteral, Span: sp, Data: lit}
}

func NewVar(sp source.Span, name string) *Expr {
	return &Expr{Kind: ExprVar, Span: sp, Data: VarData{Name: name}}
}

func NewBinary(sp source.Span, op BinOp, left, right *Expr) *Expr {
	return &Expr{Kind: ExprBinary, Span: sp, Data: BinaryData{Op: op, Left: left, Right: right}}
}

// IsNoneLiteral reports whether e is the literal None.
func (e *Expr) IsNoneLiteral() bool {
	if e == nil || e.Kind != ExprLiteral {
		return false
	}
	lit, ok := e.Data.(LiteralData)
	return ok && lit.Kind == LitNone
}

// AsVar returns the variable name when e is a plain reference.
func (e *Expr) AsVar() (string, bool) {
	if e == nil || e.Kind != ExprVar {
		return "", false
	}
	v, ok := e.Data.(VarData)
	return v.Name, ok
}

// Root chases attribute and index bases to the underlying variable, if any.
// Used by mutation analysis to attribute `xs[0].field = v` to xs.
func (e *Expr) Root() (string, bool) {
	for e != nil {
		switch e.Kind {
		case ExprVar:
			return e.Data.(VarData).Name, true
		case ExprAttribute:
			e = e.Data.(AttributeData).Value
		case ExprIndex:
			e = e.Data.(IndexData).Base
		case ExprSlice:
			e = e.Data.(SliceData).Base
		case ExprBorrow:
			e = e.Data.(BorrowData).Expr
		default:
			return "", false
		}
	}
	return "", false
}
