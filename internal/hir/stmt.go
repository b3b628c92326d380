package hir

import "github.com/paiml/depyler/internal/source"

// StmtKind enumerates HIR statement kinds.
type StmtKind uint8

const (
	// StmtAssign binds a value to a symbol, index, attribute or tuple
	// pattern. Carries the declared type when the source was annotated.
	StmtAssign StmtKind = iota
	// StmtAugAssign is `target op= value`, kept as its own node.
	StmtAugAssign
	// StmtExpr evaluates an expression for effect.
	StmtExpr
	// StmtReturn exits the function.
	StmtReturn
	// StmtIf is a two-way branch; elif chains arrive as nested ifs.
	StmtIf
	// StmtWhile loops on a condition.
	StmtWhile
	// StmtFor iterates over an iterable.
	StmtFor
	// StmtBreak exits the innermost loop.
	StmtBreak
	// StmtContinue restarts the innermost loop.
	StmtContinue
	// StmtRaise raises an exception.
	StmtRaise
	// StmtTry is try/except/else/finally.
	StmtTry
	// StmtWith is a single-item context-manager scope; multi-item with
	// statements are nested during lowering.
	StmtWith
	// StmtAssert checks a condition with an optional message.
	StmtAssert
	// StmtPass does nothing.
	StmtPass
)

func (k StmtKind) String() string {
	switch k {
	case StmtAssign:
		return "Assign"
	case StmtAugAssign:
		return "AugAssign"
	case StmtExpr:
		return "Expr"
	case StmtReturn:
		return "Return"
	case StmtIf:
		return "If"
	case StmtWhile:
		return "While"
	case StmtFor:
		return "For"
	case StmtBreak:
		return "Break"
	case StmtContinue:
		return "Continue"
	case StmtRaise:
		return "Raise"
	case StmtTry:
		return "Try"
	case StmtWith:
		return "With"
	case StmtAssert:
		return "Assert"
	case StmtPass:
		return "Pass"
	default:
		return "Unknown"
	}
}

// Stmt is an HIR statement.
type Stmt struct {
	Kind StmtKind
	Span source.Span
	Data StmtData
}

// StmtData is the interface for kind-specific payloads.
type StmtData interface {
	stmtData()
}

// TargetKind enumerates assignment target shapes.
type TargetKind uint8

const (
	// TargetSymbol binds a plain variable.
	TargetSymbol TargetKind = iota
	// TargetIndex assigns through subscription: base[index] = value.
	TargetIndex
	// TargetAttribute assigns a field: base.attr = value.
	TargetAttribute
	// TargetTuple destructures into element targets.
	TargetTuple
)

func (k TargetKind) String() string {
	switch k {
	case TargetSymbol:
		return "Symbol"
	case TargetIndex:
		return "Index"
	case TargetAttribute:
		return "Attribute"
	case TargetTuple:
		return "Tuple"
	default:
		return "?"
	}
}

// Target is the left-hand side of an assignment or the binder of a for
// loop / comprehension clause.
type Target struct {
	Kind  TargetKind
	Name  string   // Symbol
	Base  *Expr    // Index, Attribute
	Index *Expr    // Index
	Attr  string   // Attribute
	Elems []Target // Tuple
}

// Symbol builds a plain variable target.
func Symbol(name string) Target {
	return Target{Kind: TargetSymbol, Name: name}
}

// RootVar resolves the variable a write through this target mutates.
func (t Target) RootVar() (string, bool) {
	switch t.Kind {
	case TargetSymbol:
		return t.Name, true
	case TargetIndex, TargetAttribute:
		return t.Base.Root()
	default:
		return "", false
	}
}

// BoundNames lists every plain symbol the target binds, tuples flattened.
func (t Target) BoundNames() []string {
	switch t.Kind {
	case TargetSymbol:
		return []string{t.Name}
	case TargetTuple:
		var out []string
		for _, e := range t.Elems {
			out = append(out, e.BoundNames()...)
		}
		return out
	default:
		return nil
	}
}

// AssignData holds data for StmtAssign. Declared is non-nil only when the
// source carried a type annotation.
type AssignData struct {
	Target   Target
	Value    *Expr
	Declared *Type
}

func (AssignData) stmtData() {}

// AugAssignData holds data for StmtAugAssign.
type AugAssignData struct {
	Target Target
	Op     BinOp
	Value  *Expr
}

func (AugAssignData) stmtData() {}

// ExprStmtData holds data for StmtExpr.
type ExprStmtData struct {
	Expr *Expr
}

func (ExprStmtData) stmtData() {}

// ReturnData holds data for StmtReturn. Value is nil for a bare return.
type ReturnData struct {
	Value *Expr
}

func (ReturnData) stmtData() {}

// IfData holds data for StmtIf.
type IfData struct {
	Cond *Expr
	Then []Stmt
	Else []Stmt
}

func (IfData) stmtData() {}

// WhileData holds data for StmtWhile. Loop else bodies are desugared away
// before this node is built.
type WhileData struct {
	Cond *Expr
	Body []Stmt
}

func (WhileData) stmtData() {}

// ForData holds data for StmtFor.
type ForData struct {
	Target Target
	Iter   *Expr
	Body   []Stmt
}

func (ForData) stmtData() {}

type BreakData struct{}

func (BreakData) stmtData() {}

type ContinueData struct{}

func (ContinueData) stmtData() {}

// RaiseData holds data for StmtRaise. Exc nil means bare re-raise.
type RaiseData struct {
	Exc   *Expr
	Cause *Expr
}

func (RaiseData) stmtData() {}

// ExceptHandler is one except clause. Types lists the caught exception
// class names; empty means a bare except. Binding is the `as` name.
type ExceptHandler struct {
	Types   []string
	Binding string
	Body    []Stmt
	Span    source.Span
}

// TryData holds data for StmtTry.
type TryData struct {
	Body     []Stmt
	Handlers []ExceptHandler
	Else     []Stmt
	Finally  []Stmt
}

func (TryData) stmtData() {}

// WithData holds data for StmtWith. Binding is empty when the context
// value is unbound.
type WithData struct {
	Context *Expr
	Binding string
	Body    []Stmt
}

func (WithData) stmtData() {}

// AssertData holds data for StmtAssert.
type AssertData struct {
	Test *Expr
	Msg  *Expr
}

func (AssertData) stmtData() {}

type PassData struct{}

func (PassData) stmtData() {}
