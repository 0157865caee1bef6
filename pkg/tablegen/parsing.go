package tablegen

import (
	"fmt"
	"io"
	"os"
	"strconv"

	pc "github.com/prataprc/goparsec"
)

// ----------------------------------------------------------------------------
// Parser Combinator(s)

// This section defines the Parser Combinator for every token & record of the TableGen
// dump grammar (spec §4.1).
//
// Each parser combinator either manages a top level construct (Class, Def) or some piece
// of it: declarations, bit-vectors, dag expressions, bang operators. Comments are not
// part of the accepted grammar (the dumps we consume have already stripped them), only
// the two section headers and the class/def bodies are.

// Top level object, will generate the traversable AST based on the input plus the PCs below.
var ast = pc.NewAST("tablegen", 0)

var (
	// Parser combinator for a whole TableGen dump: a Classes section followed by a Defs section.
	pFile = ast.And("file", nil, pHeaderClasses, pClassSeq, pHeaderDefs, pDefSeq, pc.End())

	// Section headers, e.g. '------- Classes -------' / '------- Defs -------'.
	pHeaderClasses = pc.Token(`-{1,}[ \t]*Classes[ \t]*-{1,}`, "CLASSES_HEADER")
	pHeaderDefs    = pc.Token(`-{1,}[ \t]*Defs[ \t]*-{1,}`, "DEFS_HEADER")

	// Zero or more Class/Def records, each stopping the repetition at the next header or EOF.
	pClassSeq = ast.ManyUntil("class-seq", nil, pClass, pHeaderDefs)
	pDefSeq   = ast.ManyUntil("def-seq", nil, pDef, pc.End())

	// class Name<params> { decls }
	pClass = ast.And("class", nil,
		pc.Atom("class", "class"), pIdent,
		ast.Maybe("maybe-class-params", nil, pClassParams),
		pc.Atom("{", "{"), pDeclSeq, pc.Atom("}", "}"),
	)
	pClassParams    = ast.And("class-params", nil, pc.Atom("<", "<"), pClassParamSeq, pc.Atom(">", ">"))
	pClassParamSeq  = ast.ManyUntil("class-param-seq", nil, pClassParamItem, pc.Atom(">", ">"))
	pClassParamItem = ast.And("class-param-item", nil, pDeclType, pIdent, ast.Maybe("maybe-comma", nil, pc.Atom(",", ",")))

	// def Name { decls }
	pDef = ast.And("def", nil, pc.Atom("def", "def"), pIdent, pc.Atom("{", "{"), pDeclSeq, pc.Atom("}", "}"))

	// One or more 'DeclType Name = DeclItem ;' statements.
	pDeclSeq  = ast.ManyUntil("decl-seq", nil, pNamedDecl, pc.Atom("}", "}"))
	pNamedDecl = ast.And("named-decl", nil, pDeclType, pIdent, pc.Atom("=", "="), pDeclItem, pc.Atom(";", ";"))
)

var (
	// DeclType ::= bit | bits<N> | field bits<N> | string | int | dag | list<T> | ClassName
	pDeclType = ast.OrdChoice("decl-type", nil,
		ast.And("field-bits-type", nil, pc.Atom("field", "field"), pc.Atom("bits", "bits"), pc.Atom("<", "<"), pc.Int(), pc.Atom(">", ">")),
		ast.And("bits-type", nil, pc.Atom("bits", "bits"), pc.Atom("<", "<"), pc.Int(), pc.Atom(">", ">")),
		ast.And("list-type", nil, pc.Atom("list", "list"), pc.Atom("<", "<"), pIdent, pc.Atom(">", ">")),
		pc.Atom("bit", "bit"), pc.Atom("string", "string"), pc.Atom("int", "int"), pc.Atom("dag", "dag"),
		ast.And("class-type", nil, pIdent), // bare class name, fallback
	)

	// DeclItem ::= '?' | BitVector | Dag | String | Int | List | BangOp | Call | Reference
	pDeclItem = ast.OrdChoice("decl-item", nil,
		pc.Atom("?", "?"),
		pBitVector,
		pBangOp,
		pCall,
		pDag,
		pStringLit,
		pc.Int(),
		pListLit,
		pFieldBit, // 'Name{idx}', used outside of bit-vectors too (field references)
		pIdent,
	)

	// Brace-enclosed bit-vector literal, e.g. '{ 0, 1, rD{3}, rD{2}, ? }'.
	pBitVector    = ast.And("bitvector", nil, pc.Atom("{", "{"), pBitVecSeq, pc.Atom("}", "}"))
	pBitVecSeq    = ast.ManyUntil("bitvec-seq", nil, pBitVecItem, pc.Atom("}", "}"))
	pBitVecItem   = ast.And("bitvec-item", nil, pBitVecElem, ast.Maybe("maybe-comma", nil, pc.Atom(",", ",")))
	pBitVecElem   = ast.OrdChoice("bitvec-elem", nil, pc.Atom("0", "0"), pc.Atom("1", "1"), pc.Atom("?", "?"), pFieldBit, pIdent)
	pFieldBit     = ast.And("field-bit", nil, pIdent, pc.Atom("{", "{"), pc.Int(), pc.Atom("}", "}"))

	// List literal, e.g. '[GPR32, GPR64]'.
	pListLit  = ast.And("list-lit", nil, pc.Atom("[", "["), pListSeq, pc.Atom("]", "]"))
	pListSeq  = ast.ManyUntil("list-seq", nil, pListItem, pc.Atom("]", "]"))
	pListItem = ast.And("list-item", nil, pDeclItem, ast.Maybe("maybe-comma", nil, pc.Atom(",", ",")))

	// Dag expression, e.g. '(ins GPR32:$rS, i16imm:$imm)'. Collapsed to a single opaque node;
	// the core never evaluates what the operator means (spec §1, §4.1).
	pDag     = ast.And("dag", nil, pc.Atom("(", "("), pIdent, pDagArgSeq, pc.Atom(")", ")"))
	pDagArgSeq = ast.ManyUntil("dag-arg-seq", nil, pDagArgItem, pc.Atom(")", ")"))
	pDagArgItem = ast.And("dag-arg-item", nil, pDeclItem,
		ast.Maybe("maybe-bound-name", nil, ast.And("bound-name", nil, pc.Atom(":", ":"), pc.Atom("$", "$"), pIdent)),
		ast.Maybe("maybe-comma", nil, pc.Atom(",", ",")))

	// Bang operator, e.g. '!cast<Instruction>(NAME)' or '!or(a, b)'.
	pBangOp     = ast.And("bang-op", nil, pc.Atom("!", "!"), pIdent,
		ast.Maybe("maybe-bang-targ", nil, pTemplateArg),
		pc.Atom("(", "("), pCallArgSeq, pc.Atom(")", ")"))
	pTemplateArg = ast.And("template-arg", nil, pc.Atom("<", "<"), pIdent, pc.Atom(">", ">"))

	// Plain function-style call, e.g. 'Foo(a, b)'.
	pCall       = ast.And("call", nil, pIdent, pc.Atom("(", "("), pCallArgSeq, pc.Atom(")", ")"))
	pCallArgSeq = ast.ManyUntil("call-arg-seq", nil, pCallArgItem, pc.Atom(")", ")"))
	pCallArgItem = ast.And("call-arg-item", nil, pDeclItem, ast.Maybe("maybe-comma", nil, pc.Atom(",", ",")))

	// String literal: either a single-line '"..."' or a multiline literal that starts with '"'
	// at the end of a line and ends at a line whose first character is '"' (spec §4.1).
	pStringLit = ast.OrdChoice("string", nil,
		pc.Token(`(?s)"[ \t]*\r?\n.*?\n"`, "MLSTRING"),
		pc.Token(`"[^"\n]*"`, "STRING"),
	)

	// Generic identifier.
	pIdent = pc.Token(`[A-Za-z_][A-Za-z0-9_]*`, "IDENT")
)

// ----------------------------------------------------------------------------
// TableGen Parser

// This section defines the Parser for the subset of the LLVM TableGen dump format
// described in spec §4.1.
//
// It uses parser combinators to obtain the AST from the source content (provided via a
// generic io.Reader), the library reads up the feature flags (as env vars):
// - PARSEC_DEBUG: Verbose logging to inspect which of the PCs gets triggered and match
// - EXPORT_AST:   Exports in the DEBUG_FOLDER a Graphviz representation of the AST
// - PRINT_AST:    Print on the stdout a textual representation of the AST
type Parser struct {
	reader io.Reader
	intern *interner
}

// NewParser initializes and returns to the caller a brand new 'Parser' struct.
// Requires the argument io.Reader 'r' to be valid and usable.
func NewParser(r io.Reader) Parser {
	return Parser{reader: r, intern: newInterner()}
}

// SyntaxError reports a parse failure (spec §4.1, "Failure semantics": parsing is
// fatal, a single malformed record aborts the run).
type SyntaxError struct {
	Msg string
}

func (e *SyntaxError) Error() string { return fmt.Sprintf("tablegen: %s", e.Msg) }

// Parse divides the 2 phases of the parsing pipeline:
// Text --> AST: this step is done using PCs and returns a generic traversable AST
// AST --> Records: this step is done by traversing the AST and extracting 'tablegen.Records'
func (p *Parser) Parse() (Records, error) {
	content, err := io.ReadAll(p.reader)
	if err != nil {
		return Records{}, fmt.Errorf("cannot read from 'io.Reader': %w", err)
	}

	root, success := p.FromSource(content)
	if !success {
		return Records{}, &SyntaxError{Msg: "failed to parse AST from input content"}
	}

	return p.FromAST(root)
}

// FromSource scans the textual input stream and returns a traversable AST (Abstract
// Syntax Tree) that can be eventually visited to extract/transform the info available.
func (p *Parser) FromSource(source []byte) (pc.Queryable, bool) {
	// Feature flag: Enable 'goparsec' library's debug logs
	if os.Getenv("PARSEC_DEBUG") != "" {
		ast.SetDebug()
	}

	// We generate the traversable Abstract Syntax Tree from the source content
	root, _ := ast.Parsewith(pFile, pc.NewScanner(source))

	// Feature flag: Enables export of the AST as Dot file (debug.ast.dot)
	if os.Getenv("EXPORT_AST") != "" {
		file, err := os.Create(fmt.Sprintf("%s/debug.ast.dot", os.Getenv("DEBUG_FOLDER")))
		if err == nil {
			defer file.Close()
			file.Write([]byte(ast.Dotstring("\"TableGen AST\"")))
		}
	}

	// Feature flag: Enables pretty printing of the AST on the console
	if os.Getenv("PRINT_AST") != "" {
		ast.Prettyprint()
	}

	// Parsing succeeded only if the grammar produced a root node
	return root, root != nil
}

// FromAST takes the root node of the raw parsed AST and does a DFS on it, building the
// 'tablegen.Records' that can be used as in-memory AST not dependent on the parsing library.
func (p *Parser) FromAST(root pc.Queryable) (Records, error) {
	if root == nil || root.GetName() != "file" {
		return Records{}, &SyntaxError{Msg: "expected node 'file'"}
	}

	children := root.GetChildren()
	if len(children) < 4 {
		return Records{}, &SyntaxError{Msg: "incomplete file: missing Classes/Defs sections"}
	}

	classSeq, defSeq := children[1], children[3]

	records := Records{}
	for _, classNode := range classSeq.GetChildren() {
		class, err := p.handleClass(classNode)
		if err != nil {
			return Records{}, err
		}
		records.Classes = append(records.Classes, class)
	}
	for _, defNode := range defSeq.GetChildren() {
		def, err := p.handleDef(defNode)
		if err != nil {
			return Records{}, err
		}
		records.Defs = append(records.Defs, def)
	}

	return records, nil
}

func (p *Parser) handleClass(node pc.Queryable) (Class, error) {
	if node.GetName() != "class" {
		return Class{}, &SyntaxError{Msg: fmt.Sprintf("expected node 'class', found %s", node.GetName())}
	}

	children := node.GetChildren()
	name := p.intern.Intern(children[1].GetValue())
	class := Class{Name: name}

	declSeqIdx := 3
	if maybeParams := children[2]; maybeParams.GetName() == "class-params" {
		params, err := p.handleClassParams(maybeParams)
		if err != nil {
			return Class{}, err
		}
		class.Params = params
		declSeqIdx = 4
	}

	decls, err := p.handleDeclSeq(children[declSeqIdx])
	if err != nil {
		return Class{}, err
	}
	class.Decls = decls
	return class, nil
}

func (p *Parser) handleClassParams(node pc.Queryable) ([]ClassParam, error) {
	var params []ClassParam
	for _, itemNode := range node.GetChildren()[1].GetChildren() {
		itemChildren := itemNode.GetChildren()
		declType, err := p.handleDeclType(itemChildren[0])
		if err != nil {
			return nil, err
		}
		params = append(params, ClassParam{Type: declType, Name: p.intern.Intern(itemChildren[1].GetValue())})
	}
	return params, nil
}

func (p *Parser) handleDef(node pc.Queryable) (Def, error) {
	if node.GetName() != "def" {
		return Def{}, &SyntaxError{Msg: fmt.Sprintf("expected node 'def', found %s", node.GetName())}
	}

	children := node.GetChildren()
	name := p.intern.Intern(children[1].GetValue())

	decls, err := p.handleDeclSeq(children[3])
	if err != nil {
		return Def{}, err
	}
	return Def{Name: name, Decls: decls}, nil
}

func (p *Parser) handleDeclSeq(node pc.Queryable) ([]NamedDecl, error) {
	var decls []NamedDecl
	for _, declNode := range node.GetChildren() {
		decl, err := p.handleNamedDecl(declNode)
		if err != nil {
			return nil, err
		}
		decls = append(decls, decl)
	}
	return decls, nil
}

func (p *Parser) handleNamedDecl(node pc.Queryable) (NamedDecl, error) {
	if node.GetName() != "named-decl" {
		return NamedDecl{}, &SyntaxError{Msg: fmt.Sprintf("expected node 'named-decl', found %s", node.GetName())}
	}

	children := node.GetChildren()
	declType, err := p.handleDeclType(children[0])
	if err != nil {
		return NamedDecl{}, err
	}
	name := p.intern.Intern(children[1].GetValue())
	item, err := p.handleDeclItem(children[3])
	if err != nil {
		return NamedDecl{}, err
	}

	return NamedDecl{Type: declType, Name: name, Item: item}, nil
}

func (p *Parser) handleDeclType(node pc.Queryable) (DeclType, error) {
	switch node.GetName() {
	case "field-bits-type":
		width, err := strconv.Atoi(node.GetChildren()[3].GetValue())
		if err != nil {
			return DeclType{}, fmt.Errorf("invalid 'field bits<N>' width: %w", err)
		}
		return DeclType{Kind: FieldBitsType, BitWidth: width}, nil
	case "bits-type":
		width, err := strconv.Atoi(node.GetChildren()[2].GetValue())
		if err != nil {
			return DeclType{}, fmt.Errorf("invalid 'bits<N>' width: %w", err)
		}
		return DeclType{Kind: BitsType, BitWidth: width}, nil
	case "list-type":
		return DeclType{Kind: ListType, ElemType: p.intern.Intern(node.GetChildren()[2].GetValue())}, nil
	case "class-type":
		return DeclType{Kind: ClassType, ClassRef: p.intern.Intern(node.GetChildren()[0].GetValue())}, nil
	case "bit":
		return DeclType{Kind: BitType}, nil
	case "string":
		return DeclType{Kind: StringType}, nil
	case "int":
		return DeclType{Kind: IntType}, nil
	case "dag":
		return DeclType{Kind: DagType}, nil
	default:
		return DeclType{}, &SyntaxError{Msg: fmt.Sprintf("unrecognized decl-type node %s", node.GetName())}
	}
}

func (p *Parser) handleDeclItem(node pc.Queryable) (DeclItem, error) {
	switch node.GetName() {
	case "?":
		return DeclItem{Unknown: true}, nil
	case "bitvector":
		elems, err := p.handleBitVector(node)
		if err != nil {
			return DeclItem{}, err
		}
		return DeclItem{BitVector: elems}, nil
	case "MLSTRING", "STRING":
		str := p.intern.Intern(node.GetValue())
		return DeclItem{Str: &str}, nil
	case "INT":
		n, err := strconv.ParseInt(node.GetValue(), 10, 64)
		if err != nil {
			return DeclItem{}, fmt.Errorf("invalid integer literal %q: %w", node.GetValue(), err)
		}
		return DeclItem{Int: &n}, nil
	case "list-lit":
		var list []DeclItem
		for _, itemNode := range node.GetChildren()[1].GetChildren() {
			item, err := p.handleDeclItem(itemNode.GetChildren()[0])
			if err != nil {
				return DeclItem{}, err
			}
			list = append(list, item)
		}
		return DeclItem{List: list}, nil
	case "dag":
		dag, err := p.handleDag(node)
		if err != nil {
			return DeclItem{}, err
		}
		return DeclItem{Dag: dag}, nil
	case "bang-op":
		call, err := p.handleBangOp(node)
		if err != nil {
			return DeclItem{}, err
		}
		return DeclItem{Call: call}, nil
	case "call":
		call, err := p.handleCall(node)
		if err != nil {
			return DeclItem{}, err
		}
		return DeclItem{Call: call}, nil
	case "field-bit":
		ref := p.intern.Intern(fmt.Sprintf("%s{%s}", node.GetChildren()[0].GetValue(), node.GetChildren()[2].GetValue()))
		return DeclItem{Reference: &ref}, nil
	case "IDENT":
		ref := p.intern.Intern(node.GetValue())
		return DeclItem{Reference: &ref}, nil
	default:
		return DeclItem{}, &SyntaxError{Msg: fmt.Sprintf("unrecognized decl-item node %s", node.GetName())}
	}
}

func (p *Parser) handleBitVector(node pc.Queryable) ([]BitVecElem, error) {
	var elems []BitVecElem
	for _, itemNode := range node.GetChildren()[1].GetChildren() {
		elemNode := itemNode.GetChildren()[0]
		switch elemNode.GetName() {
		case "0":
			elems = append(elems, BitVecElem{Kind: ZeroElem})
		case "1":
			elems = append(elems, BitVecElem{Kind: OneElem})
		case "?":
			elems = append(elems, BitVecElem{Kind: UnknownElem})
		case "field-bit":
			idx, err := strconv.Atoi(elemNode.GetChildren()[2].GetValue())
			if err != nil {
				return nil, fmt.Errorf("invalid field-bit index: %w", err)
			}
			elems = append(elems, BitVecElem{
				Kind: FieldBitElem, Name: p.intern.Intern(elemNode.GetChildren()[0].GetValue()), Index: idx,
			})
		case "IDENT":
			elems = append(elems, BitVecElem{Kind: FieldVarRefElem, Name: p.intern.Intern(elemNode.GetValue())})
		default:
			return nil, &SyntaxError{Msg: fmt.Sprintf("unrecognized bitvec-elem node %s", elemNode.GetName())}
		}
	}
	return elems, nil
}

func (p *Parser) handleDag(node pc.Queryable) (*DagItem, error) {
	children := node.GetChildren()
	dag := &DagItem{Operator: p.intern.Intern(children[1].GetValue())}

	for _, argNode := range children[2].GetChildren() {
		argChildren := argNode.GetChildren()
		value, err := p.handleDeclItem(argChildren[0])
		if err != nil {
			return nil, err
		}
		arg := DagArg{Value: value}
		if maybeBound := argChildren[1]; maybeBound.GetName() == "bound-name" {
			arg.BoundName = p.intern.Intern(maybeBound.GetChildren()[2].GetValue())
		}
		dag.Args = append(dag.Args, arg)
	}
	return dag, nil
}

func (p *Parser) handleBangOp(node pc.Queryable) (*CallItem, error) {
	children := node.GetChildren()
	call := &CallItem{Bang: true, Operator: p.intern.Intern(children[1].GetValue())}

	if maybeTArg := children[2]; maybeTArg.GetName() == "template-arg" {
		call.TemplateArg = p.intern.Intern(maybeTArg.GetChildren()[1].GetValue())
	}
	args, err := p.handleCallArgSeq(children[4])
	if err != nil {
		return nil, err
	}
	call.Args = args
	return call, nil
}

func (p *Parser) handleCall(node pc.Queryable) (*CallItem, error) {
	children := node.GetChildren()
	call := &CallItem{Operator: p.intern.Intern(children[0].GetValue())}
	args, err := p.handleCallArgSeq(children[2])
	if err != nil {
		return nil, err
	}
	call.Args = args
	return call, nil
}

func (p *Parser) handleCallArgSeq(node pc.Queryable) ([]DeclItem, error) {
	var args []DeclItem
	for _, argNode := range node.GetChildren() {
		item, err := p.handleDeclItem(argNode.GetChildren()[0])
		if err != nil {
			return nil, err
		}
		args = append(args, item)
	}
	return args, nil
}
