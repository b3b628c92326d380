// Package pyast defines the concrete Python AST produced by the parser
// adapter. The tree is plain data: later phases walk it read-only, and tests
// construct it directly without a parser.
package pyast

import (
	"github.com/paiml/depyler/internal/source"
)

type Node interface {
	Span() source.Span
}

type Stmt interface {
	Node
	stmtNode()
}

type Expr interface {
	Node
	exprNode()
}

type node struct {
	Loc source.Span
}

func (n node) Span() source.Span { return n.Loc }

// At builds the embedded location for constructed nodes.
func At(sp source.Span) node { return node{Loc: sp} }

// Module is the root of one parsed file.
type Module struct {
	node
	Body []Stmt
}

// Param is one formal parameter.
type Param struct {
	node
	Name       string
	Annotation Expr // nil when unannotated
	Default    Expr // nil when required
}

// Arguments captures the full Python parameter list shape.
type Arguments struct {
	Args    []Param
	PosOnly []Param
	KwOnly  []Param
	VarArg  *Param // *args
	KwArg   *Param // **kwargs
}

// Keyword is a keyword argument at a call site.
type Keyword struct {
	node
	Arg   string // empty for **kwargs splat
	Value Expr
}

// Comprehension is one `for target in iter [if cond]*` clause.
type Comprehension struct {
	node
	Target  Expr
	Iter    Expr
	Ifs     []Expr
	IsAsync bool
}

/// ExceptHandler is one `except [type [as name]]:` clause.
type ExceptHandler struct {
	node
	Type Expr   // nil for bare except
	Name string // empty when unbound
	Body []Stmt
}

// WithItem is one `ctx [as target]` entry of a with statement.
type WithItem struct {
	node
	Context Expr
	Target  Expr // nil when unbound
}

// MatchCase is one `case pattern [if guard]:` clause.
type MatchCase struct {
	node
	Pattern Expr // restricted subset: literals, names, wildcards
	Guard   Expr // nil when absent
	Body    []Stmt
}

// Statements.

type FunctionDef struct {
	node
	Name       string
	Args       Arguments
	Body       []Stmt
	Decorators []Expr
	Returns    Expr // nil when unannotated
	IsAsync    bool
	Docstring  string
	// Line of the `def` keyword, 1-based; used for annotation block lookup.
	DefLine uint32
}

type ClassDef struct {
	node
	Name       string
	Bases      []Expr
	Keywords   []Keyword // metaclass=... arrives here
	Body       []Stmt
	Decorators []Expr
	Docstring  string
	DefLine    uint32
}

type Return struct {
	node
	Value Expr // nil for bare return
}

type Assign struct {
	node
	Targets []Expr // multiple for chained `a = b = expr`
	Value   Expr
}

type AnnAssign struct {
	node
	Target     Expr
	Annotation Expr
	Value      Expr // nil for declaration-only
}

type AugAssign struct {
	node
	Target Expr
	Op     BinOpKind
	Value  Expr
}

type If struct {
	node
	Cond   Expr
	Body   []Stmt
	Orelse []Stmt // elif chains arrive as a nested If in Orelse
}

type While struct {
	node
	Cond   Expr
	Body   []Stmt
	Orelse []Stmt
}

type For struct {
	node
	Target  Expr
	Iter    Expr
	Body    []Stmt
	Orelse  []Stmt
	IsAsync bool
}

type With struct {
	node
	Items   []WithItem
	Body    []Stmt
	IsAsync bool
}

type Raise struct {
	node
	Exc   Expr // nil for bare re-raise
	Cause Expr // raise X from Y
}

type Try struct {
	node
	Body     []Stmt
	Handlers []ExceptHandler
	Orelse   []Stmt
	Final    []Stmt
}

type Assert struct {
	node
	Test Expr
	Msg  Expr // nil when absent
}

type Import struct {
	node
	Names []ImportAlias
}

type ImportFrom struct {
	node
	Module string
	Names  []ImportAlias // empty plus Wildcard for `from m import *`
	Level  int           // leading dots of a relative import
	// Wildcard marks `from m import *`.
	Wildcard bool
}

// ImportAlias is one `name [as alias]` entry.
type ImportAlias struct {
	node
	Name  string
	Alias string // empty when unaliased
}

type Global struct {
	node
	Names []string
}

type Nonlocal struct {
	node
	Names []string
}

type ExprStmt struct {
	node
	Value Expr
}

type Pass struct{ node }

type Break struct{ node }

type Continue struct{ node }

type Delete struct {
	node
	Targets []Expr
}

type Match struct {
	node
	Subject Expr
	Cases   []MatchCase
}

func (*FunctionDef) stmtNode() {}
func (*ClassDef) stmtNode()    {}
func (*Return) stmtNode()      {}
func (*Assign) stmtNode()      {}
func (*AnnAssign) stmtNode()   {}
func (*AugAssign) stmtNode()   {}
func (*If) stmtNode()          {}
func (*While) stmtNode()       {}
func (*For) stmtNode()         {}
func (*With) stmtNode()        {}
func (*Raise) stmtNode()       {}
func (*Try) stmtNode()         {}
func (*Assert) stmtNode()      {}
func (*Import) stmtNode()      {}
func (*ImportFrom) stmtNode()  {}
func (*Global) stmtNode()      {}
func (*Nonlocal) stmtNode()    {}
func (*ExprStmt) stmtNode()    {}
func (*Pass) stmtNode()        {}
func (*Break) stmtNode()       {}
func (*Continue) stmtNode()    {}
func (*Delete) stmtNode()      {}
func (*Match) stmtNode()       {}

// Expressions.

type LitKind uint8

const (
	LitInt LitKind = iota
	LitFloat
	LitString
	LitBytes
	LitBool
	LitNone
	LitEllipsis
)

// Literal carries the raw token text; numeric parsing happens at lowering.
type Literal struct {
	node
	Kind LitKind
	Text string // normalized: quotes stripped for strings, raw digits for numbers
	Bool bool   // valid for LitBool
}

type Name struct {
	node
	ID string
}

type BinOpKind uint8

const (
	OpAdd BinOpKind = iota
	OpSub
	OpMul
	OpDiv
	OpFloorDiv
	OpMod
	OpPow
	OpMatMul
	OpLShift
	OpRShift
	OpBitOr
	OpBitXor
	OpBitAnd
)

func (k BinOpKind) String() string {
	switch k {
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
	case OpBitOr:
		return "|"
	case OpBitXor:
		return "^"
	case OpBitAnd:
		return "&"
	}
	return "?"
}

type BinOp struct {
	node
	Op    BinOpKind
	Left  Expr
	Right Expr
}

type BoolOpKind uint8

const (
	OpAnd BoolOpKind = iota
	OpOr
)

type BoolOp struct {
	node
	Op     BoolOpKind
	Values []Expr
}

type UnaryOpKind uint8

const (
	OpNot UnaryOpKind = iota
	OpNeg
	OpUAdd
	OpInvert
)

type UnaryOp struct {
	node
	Op      UnaryOpKind
	Operand Expr
}

type CmpOpKind uint8

const (
	CmpEq CmpOpKind = iota
	CmpNotEq
	CmpLt
	CmpLtE
	CmpGt
	CmpGtE
	CmpIn
	CmpNotIn
	CmpIs
	CmpIsNot
)

func (k CmpOpKind) String() string {
	switch k {
	case CmpEq:
		return "=="
	case CmpNotEq:
		return "!="
	case CmpLt:
		return "<"
	case CmpLtE:
		return "<="
	case CmpGt:
		return ">"
	case CmpGtE:
		return ">="
	case CmpIn:
		return "in"
	case CmpNotIn:
		return "not in"
	case CmpIs:
		return "is"
	case CmpIsNot:
		return "is not"
	}
	return "?"
}

// Compare keeps the chained shape: len(Ops) == len(Comparators).
type Compare struct {
	node
	Left        Expr
	Ops         []CmpOpKind
	Comparators []Expr
}

type Call struct {
	node
	Func     Expr
	Args     []Expr
	Keywords []Keyword
}

type Attribute struct {
	node
	Value Expr
	Attr  string
}

type Subscript struct {
	node
	Value Expr
	Index Expr // a Slice node for `a[i:j]`
}

type Slice struct {
	node
	Lower Expr // all optional
	Upper Expr
	Step  Expr
}

type ListExpr struct {
	node
	Elts []Expr
}

type TupleExpr struct {
	node
	Elts []Expr
}

type SetExpr struct {
	node
	Elts []Expr
}

type DictExpr struct {
	node
	Keys   []Expr // nil entry marks a **splat
	Values []Expr
}

type CompKind uint8

const (
	CompList CompKind = iota
	CompSet
	CompDict
	CompGenerator
)

// CompExpr covers list/set/dict comprehensions and generator expressions.
// For CompDict, Value holds the value part and Elt the key.
type CompExpr struct {
	node
	Kind       CompKind
	Elt        Expr
	Value      Expr // dict comprehensions only
	Generators []Comprehension
}

type Lambda struct {
	node
	Args Arguments
	Body Expr
}

type IfExpr struct {
	node
	Cond   Expr
	Body   Expr
	Orelse Expr
}

type NamedExpr struct {
	node
	Target Expr
	Value  Expr
}

// FString is a joined string: literal fragments interleaved with
// interpolated expressions.
type FString struct {
	node
	Parts []FStringPart
}

// FStringPart is either literal text (Expr == nil) or one interpolation.
type FStringPart struct {
	Text   string
	Expr   Expr
	Format string // raw format spec after ':', empty when absent
}

type Await struct {
	node
	Value Expr
}

type Yield struct {
	node
	Value  Expr // nil for bare yield
	IsFrom bool
}

type Starred struct {
	node
	Value Expr
}

func (*Literal) exprNode()   {}
func (*Name) exprNode()      {}
func (*BinOp) exprNode()     {}
func (*BoolOp) exprNode()    {}
func (*UnaryOp) exprNode()   {}
func (*Compare) exprNode()   {}
func (*Call) exprNode()      {}
func (*Attribute) exprNode() {}
func (*Subscript) exprNode() {}
func (*Slice) exprNode()     {}
func (*ListExpr) exprNode()  {}
func (*TupleExpr) exprNode() {}
func (*SetExpr) exprNode()   {}
func (*DictExpr) exprNode()  {}
func (*CompExpr) exprNode()  {}
func (*Lambda) exprNode()    {}
func (*IfExpr) exprNode()    {}
func (*NamedExpr) exprNode() {}
func (*FString) exprNode()   {}
func (*Await) exprNode()     {}
func (*Yield) exprNode()     {}
func (*Starred) exprNode()   {}
