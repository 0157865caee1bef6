package tablegen

// ----------------------------------------------------------------------------
// General information

// This section contains the in-memory AST produced by the TableGen parser.
//
// We declare a shared 'DeclItem' struct for every possible right-hand side of a
// NamedDecl (bit vectors, dag items, literals, bare references, ...) as well as the
// top level 'Records' struct that bundles every parsed class and def together. This
// AST is intentionally shallow: the ISA filter (pkg/isa) is the one that gives these
// records architectural meaning, the parser only worries about shape.

// Records is the top level AST produced by parsing a whole TableGen dump.
type Records struct {
	Classes []Class
	Defs    []Def
}

// FindClass returns the Class named 'name', if the Records AST declares one.
func (r Records) FindClass(name string) (Class, bool) {
	for _, c := range r.Classes {
		if c.Name == name {
			return c, true
		}
	}
	return Class{}, false
}

// FindDef returns the Def named 'name', if the Records AST declares one.
func (r Records) FindDef(name string) (Def, bool) {
	for _, d := range r.Defs {
		if d.Name == name {
			return d, true
		}
	}
	return Def{}, false
}

// ----------------------------------------------------------------------------
// Classes & Defs

// Class is the in-memory representation of a 'class Name<params> { decls }' block.
//
// Classes exist purely to be inherited from (a Def superclass list isn't tracked here,
// only the declarations a Def pulls in are what the filter cares about); the core does
// not evaluate template parameter substitution, and pkg/isa.Filter reads only Defs.
type Class struct {
	Name   string
	Params []ClassParam
	Decls  []NamedDecl
}

// ClassParam is one 'DeclType Name' entry of a class's '<...>' template parameter list.
type ClassParam struct {
	Type DeclType
	Name string
}

// Def is the in-memory representation of a 'def Name { decls }' block.
//
// Def is what the ISA filter actually selects instructions and registers from; a Def
// with no 'Inst' declaration is of no interest to the decoder/encoder core and is simply
// skipped by the filter's predicate.
type Def struct {
	Name  string
	Decls []NamedDecl
}

// Decl looks up a NamedDecl by name among a Def's own declarations.
func (d Def) Decl(name string) (NamedDecl, bool) {
	for _, decl := range d.Decls {
		if decl.Name == name {
			return decl, true
		}
	}
	return NamedDecl{}, false
}

// ----------------------------------------------------------------------------
// Declarations

// NamedDecl is one 'DeclType Name = DeclItem ;' statement inside a Class or Def body.
type NamedDecl struct {
	Type DeclType
	Name string
	Item DeclItem
}

// DeclType enumerates the grammar's recognized declaration types (spec §4.1):
// bit, bits<N>, field bits<N>, string, int, dag, list<T>, or a bare class name.
type DeclType struct {
	Kind     DeclTypeKind
	BitWidth int    // valid when Kind is BitsType or FieldBitsType
	ElemType string // valid when Kind is ListType (the 'T' of 'list<T>')
	ClassRef string // valid when Kind is ClassType (the referenced class name)
}

type DeclTypeKind uint8

const (
	BitType DeclTypeKind = iota
	BitsType
	FieldBitsType
	StringType
	IntType
	DagType
	ListType
	ClassType
)

// DeclItem is the sum type of every right-hand side shape a NamedDecl can carry.
// Exactly one of the embedded pointer-like fields is populated; callers check the one
// they expect (pkg/isa.Filter reads BitVector, Dag, Str, Int, List and Reference).
type DeclItem struct {
	Unknown   bool // the bare '?' marker
	BitVector []BitVecElem
	Int       *int64
	Str       *string
	List      []DeclItem
	Dag       *DagItem
	Call      *CallItem
	Reference *string // a bare identifier reference (Name, or Name{idx} for a field-bit reference)
}

// BitVecElem is one element of a brace-enclosed bit-vector literal, e.g. the body of
//
//	bits<32> Inst = { 0, 1, 1, 0, rD{3}, rD{2}, rD{1}, rD{0}, ? };
type BitVecElem struct {
	Kind BitVecElemKind
	Name string // valid when Kind is FieldVarRefElem or FieldBitElem
	Index int   // valid when Kind is FieldBitElem
}

type BitVecElemKind uint8

const (
	ZeroElem BitVecElemKind = iota
	OneElem
	UnknownElem   // '?'
	FieldVarRefElem // bare 'Name'
	FieldBitElem    // 'Name{idx}'
)

// DagItem is a syntactically balanced but semantically opaque DAG expression, e.g.
//
//	(ins GPR32:$rS, i16imm:$imm)
//
// The core does not interpret DAG operators; it only needs the operator name and the
// ordered list of (type, bound-name) argument pairs to recover operand declarations.
type DagItem struct {
	Operator string
	Args     []DagArg
}

// DagArg is one argument of a DagItem: a type/value expression optionally bound to a
// '$name' in the surrounding instruction (this is how OutOperandList/InOperandList
// name their operands).
type DagArg struct {
	Value     DeclItem
	BoundName string // empty if the argument isn't bound with '$name'
}

// CallItem covers both general function calls ('Foo(a, b)') and bang operators
// ('!op(a, b)', '!op<T>(a, b)'); the core only needs the operator name and its
// arguments to remain structurally parseable, it never evaluates them (spec §1,
// "does not resolve all DAG operators").
type CallItem struct {
	Bang     bool // true for '!op(...)' forms, false for 'Name(...)' forms
	Operator string
	TemplateArg string // the single '<T>' template argument, if present
	Args     []DeclItem
}
