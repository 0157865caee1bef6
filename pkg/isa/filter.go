package isa

import (
	"fmt"

	"isagen.dev/isagen/pkg/tablegen"
)

// ----------------------------------------------------------------------------
// ISA Filter

// The Filter takes a tablegen.Records AST and produces its ISADescriptor
// counterpart for one concrete ISA configuration.
//
// Since we get a flat list of Defs we iterate def by def. For each one accepted
// by the ISA's FilterInstruction predicate we resolve its 'Inst' bit-vector
// against sibling FieldBit/FieldVarRef references, apply the endian adapter, and
// scan the don't-care bits to recover each operand's chunk layout (much like the
// original lowering step but over a TableGen AST instead of an assembler one).
type Filter struct{ isa ISA }

// NewFilter initializes and returns to the caller a brand new 'Filter' struct.
func NewFilter(isa ISA) Filter {
	return Filter{isa: isa}
}

// fieldRef pins one raw-mask bit position to the operand field bit it came from.
type fieldRef struct {
	name string
	idx  int
}

// Build triggers the filtering process. It iterates def by def and, for each
// one accepted by the ISA as an instruction, resolves its bit-vector and DAG
// declarations into an InstructionDescriptor. Per-operand chunk failures are
// collected in ISADescriptor.Errors rather than aborting the whole build.
func (f Filter) Build(r tablegen.Records) (ISADescriptor, error) {
	if f.isa.FilterInstruction == nil {
		return ISADescriptor{}, fmt.Errorf("isa: ISA %q has no FilterInstruction predicate", f.isa.Name)
	}
	if f.isa.InsnWidthBits == 0 || f.isa.InsnWidthBits%8 != 0 {
		return ISADescriptor{}, fmt.Errorf("isa: ISA %q has an invalid InsnWidthBits=%d (must be a positive multiple of 8)", f.isa.Name, f.isa.InsnWidthBits)
	}

	perm, err := f.endianPermutation()
	if err != nil {
		return ISADescriptor{}, fmt.Errorf("isa: resolving endian adapter for %q: %w", f.isa.Name, err)
	}

	descriptor := ISADescriptor{}
	seenOperand := map[string]bool{}

	for _, def := range r.Defs {
		if !f.isa.FilterInstruction(def) {
			continue
		}

		inst, errs := f.buildInstruction(def, r, perm)
		descriptor.Errors = append(descriptor.Errors, errs...)
		descriptor.Instructions = append(descriptor.Instructions, inst)

		for _, op := range inst.Operands() {
			if !seenOperand[op.Type] {
				seenOperand[op.Type] = true
				descriptor.Operands = append(descriptor.Operands, op.Type)
			}
		}
	}

	classes, registers, err := f.buildRegisters(r)
	if err != nil {
		return ISADescriptor{}, err
	}
	descriptor.RegisterClasses = classes
	descriptor.Registers = registers

	return descriptor, nil
}

// buildInstruction implements §4.2 steps 1-5 for a single accepted Def.
func (f Filter) buildInstruction(def tablegen.Def, r tablegen.Records, perm []int) (InstructionDescriptor, []DescriptorError) {
	inst := InstructionDescriptor{Mnemonic: def.Name, AsmString: f.declString(def, "AsmString")}
	if f.isa.IsPseudo != nil {
		inst.IsPseudo = f.isa.IsPseudo(def)
	}

	// Step 1: resolve the 'Inst' bit-vector into a RawMask plus a field-ref table.
	rawMask, refs, err := f.resolveInst(def)
	if err != nil {
		return inst, []DescriptorError{{Mnemonic: def.Name, Operand: "Inst", Reason: err.Error()}}
	}
	inst.RawMask = rawMask

	// Step 2: apply the endian adapter's byte permutation to produce Mask, and
	// remap the field-ref table into mask-space along the way.
	mask, maskRefs := f.applyEndian(rawMask, refs, perm)
	inst.Mask = mask

	// Step 3: parse OutOperandList/InOperandList into ordered (name, type) pairs.
	outNames, outTypes, errs1 := f.parseOperandList(def, "OutOperandList")
	inNames, inTypes, errs2 := f.parseOperandList(def, "InOperandList")
	var errs []DescriptorError
	errs = append(errs, errs1...)
	errs = append(errs, errs2...)

	// Step 4: scan the Any bits of Mask and coalesce them into operand chunks.
	chunksByName, scanErrs := f.scanChunks(mask, maskRefs, def.Name)
	errs = append(errs, scanErrs...)

	// Step 5: emit OutputOps then InputOps, in source order (the canonical order).
	inst.OutputOps, errs = f.emitOperands(def.Name, outNames, outTypes, chunksByName, errs)
	inst.InputOps, errs = f.emitOperands(def.Name, inNames, inTypes, chunksByName, errs)

	declared := map[string]bool{}
	for _, name := range outNames {
		declared[name] = true
	}
	for _, name := range inNames {
		declared[name] = true
	}
	for name := range chunksByName {
		if !declared[name] {
			errs = append(errs, DescriptorError{Mnemonic: def.Name, Operand: name, Reason: "bit-vector field is not declared in OutOperandList/InOperandList"})
		}
	}

	return inst, errs
}

// resolveInst extracts the 'Inst' bit-vector decl and turns it into a RawMask
// plus a position-indexed table of the field references it carries.
func (f Filter) resolveInst(def tablegen.Def) (Pattern, map[int]fieldRef, error) {
	decl, ok := def.Decl("Inst")
	if !ok {
		return nil, nil, fmt.Errorf("missing 'Inst' declaration")
	}
	if decl.Item.BitVector == nil {
		return nil, nil, fmt.Errorf("'Inst' is not a bit-vector literal")
	}

	mask := make(Pattern, len(decl.Item.BitVector))
	refs := map[int]fieldRef{}
	nextAutoIndex := map[string]int{}

	for i, elem := range decl.Item.BitVector {
		switch elem.Kind {
		case tablegen.ZeroElem:
			mask[i] = Zero
		case tablegen.OneElem:
			mask[i] = One
		case tablegen.FieldBitElem:
			mask[i] = Any
			refs[i] = fieldRef{name: elem.Name, idx: elem.Index}
		case tablegen.FieldVarRefElem:
			mask[i] = Any
			idx := nextAutoIndex[elem.Name]
			nextAutoIndex[elem.Name] = idx + 1
			refs[i] = fieldRef{name: elem.Name, idx: idx}
		case tablegen.UnknownElem:
			mask[i] = Any
		default:
			return nil, nil, fmt.Errorf("unrecognized bit-vector element at position %d", i)
		}
	}

	return mask, refs, nil
}

// endianPermutation derives, from the ISA's InsnWordFromBytes closure alone, the
// byte-block permutation that converts a RawMask's byte-grouped bits into the
// order they appear in the actual wire-byte stream. Probing with one distinct
// marker byte per position turns the opaque endian adapter into an explicit
// permutation without the Filter ever special-casing "big" vs "little".
func (f Filter) endianPermutation() ([]int, error) {
	width := f.isa.InsnWidthBits / 8
	if f.isa.InsnWordFromBytes == nil {
		// No adapter supplied: identity permutation, Mask == RawMask byte order.
		perm := make([]int, width)
		for i := range perm {
			perm[i] = i
		}
		return perm, nil
	}

	probe := make([]byte, width)
	for i := range probe {
		probe[i] = byte(i)
	}
	word, err := f.isa.InsnWordFromBytes(probe)
	if err != nil {
		return nil, fmt.Errorf("probing endian adapter: %w", err)
	}

	perm := make([]int, width)
	for j := 0; j < width; j++ {
		shift := 8 * (width - 1 - j)
		perm[j] = int(byte(word >> shift))
	}
	return perm, nil
}

// applyEndian reorders RawMask's 8-bit blocks per 'perm' to produce Mask, and
// remaps the field-ref table from RawMask bit positions to Mask bit positions.
func (f Filter) applyEndian(raw Pattern, refs map[int]fieldRef, perm []int) (Pattern, map[int]fieldRef) {
	mask := make(Pattern, len(raw))
	maskRefs := map[int]fieldRef{}

	// perm[j] is the wire position of the byte that lands at word byte j, so
	// RawMask block j (word order) moves to Mask block perm[j] (wire order).
	for j := 0; j < len(perm); j++ {
		dstBlock := perm[j]
		for k := 0; k < 8; k++ {
			oldIndex, newIndex := j*8+k, dstBlock*8+k
			if oldIndex >= len(raw) || newIndex >= len(mask) {
				continue
			}
			mask[newIndex] = raw[oldIndex]
			if ref, ok := refs[oldIndex]; ok {
				maskRefs[newIndex] = ref
			}
		}
	}
	return mask, maskRefs
}

// scanChunks walks Mask left to right, coalescing adjacent Any bits of the same
// operand with increasing field index into single OperandChunks (§4.2 step 4).
func (f Filter) scanChunks(mask Pattern, refs map[int]fieldRef, mnemonic string) (map[string][]OperandChunk, []DescriptorError) {
	chunks := map[string][]OperandChunk{}
	var errs []DescriptorError

	type run struct {
		active             bool
		name               string
		startBit, startIdx int
		lastBit, lastIdx   int
		length             int
	}
	var cur run

	flush := func() {
		if !cur.active {
			return
		}
		chunks[cur.name] = append(chunks[cur.name], OperandChunk{
			BitInInstruction: cur.startBit, BitInOperand: cur.startIdx, Length: cur.length,
		})
		cur = run{}
	}

	for i, bit := range mask {
		if bit != Any {
			flush()
			continue
		}
		ref, ok := refs[i]
		if !ok {
			flush()
			errs = append(errs, DescriptorError{Mnemonic: mnemonic, Operand: "?", Reason: fmt.Sprintf("don't-care bit %d has no field reference", i)})
			continue
		}
		if cur.active && cur.name == ref.name && i == cur.lastBit+1 && ref.idx == cur.lastIdx+1 {
			cur.lastBit, cur.lastIdx, cur.length = i, ref.idx, cur.length+1
			continue
		}
		flush()
		cur = run{active: true, name: ref.name, startBit: i, startIdx: ref.idx, lastBit: i, lastIdx: ref.idx, length: 1}
	}
	flush()

	return chunks, errs
}

// declString returns the string literal declared as 'name' on 'def', or "" if
// there is no such declaration or it is not a string literal.
func (f Filter) declString(def tablegen.Def, name string) string {
	decl, ok := def.Decl(name)
	if !ok || decl.Item.Str == nil {
		return ""
	}
	return *decl.Item.Str
}

// parseOperandList reads the DAG decl named 'declName' (OutOperandList or
// InOperandList) into ordered (name, type) pairs. Each DAG argument's bound
// name ('$rS') is the operand name; its value, a bare class/def reference, is
// taken as the operand's type name exactly as written. The name is not looked
// up among the records' classes or defs.
func (f Filter) parseOperandList(def tablegen.Def, declName string) ([]string, []string, []DescriptorError) {
	decl, ok := def.Decl(declName)
	if !ok {
		return nil, nil, nil
	}
	if decl.Item.Dag == nil {
		return nil, nil, []DescriptorError{{Mnemonic: def.Name, Operand: declName, Reason: "declaration is not a dag item"}}
	}

	var names, types []string
	var errs []DescriptorError
	for _, arg := range decl.Item.Dag.Args {
		name := arg.BoundName
		if name == "" {
			errs = append(errs, DescriptorError{Mnemonic: def.Name, Operand: declName, Reason: "dag argument has no bound '$name'"})
			continue
		}
		if arg.Value.Reference == nil {
			errs = append(errs, DescriptorError{Mnemonic: def.Name, Operand: name, Reason: "operand type is not a bare class/def reference"})
			continue
		}
		names = append(names, name)
		types = append(types, *arg.Value.Reference)
	}
	return names, types, errs
}

// emitOperands builds OperandDescriptors for 'names'/'types' in order, pulling
// each operand's chunks from 'chunksByName'; an operand with no recovered
// chunks is still emitted (with a nil Chunks slice) and flagged in 'errs'.
func (f Filter) emitOperands(mnemonic string, names, types []string, chunksByName map[string][]OperandChunk, errs []DescriptorError) ([]OperandDescriptor, []DescriptorError) {
	var ops []OperandDescriptor
	for i, name := range names {
		chunks, ok := chunksByName[name]
		if !ok {
			errs = append(errs, DescriptorError{Mnemonic: mnemonic, Operand: name, Reason: "no bit-vector chunks reference this operand"})
		}
		ops = append(ops, OperandDescriptor{Name: name, Type: types[i], Chunks: chunks})
	}
	return ops, errs
}

// buildRegisters extracts RegisterClass/Register records using the ISA's
// optional IsRegisterClass/IsRegister predicates. An ISA that leaves both nil
// gets back two empty slices, not an error.
func (f Filter) buildRegisters(r tablegen.Records) ([]RegisterClass, []Register, error) {
	var classes []RegisterClass
	memberOf := map[string]string{} // register name -> owning class name

	if f.isa.IsRegisterClass != nil {
		for _, def := range r.Defs {
			if !f.isa.IsRegisterClass(def) {
				continue
			}
			decl, ok := def.Decl("Members")
			if !ok {
				continue
			}
			var members []string
			for _, item := range decl.Item.List {
				if item.Reference == nil {
					continue
				}
				members = append(members, *item.Reference)
				memberOf[*item.Reference] = def.Name
			}
			classes = append(classes, RegisterClass{Name: def.Name, Registers: members})
		}
	}

	var registers []Register
	if f.isa.IsRegister != nil {
		for _, def := range r.Defs {
			if !f.isa.IsRegister(def) {
				continue
			}
			var encoding uint64
			if decl, ok := def.Decl("Num"); ok && decl.Item.Int != nil {
				encoding = uint64(*decl.Item.Int)
			}
			registers = append(registers, Register{Name: def.Name, Class: memberOf[def.Name], Encoding: encoding})
		}
	}

	return classes, registers, nil
}
