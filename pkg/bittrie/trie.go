package bittrie

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// ----------------------------------------------------------------------------
// General information

// This section builds and runs the flat byte-indexed decoder table described by
// the bit-packing ISA's InstructionDescriptor masks: a deterministic automaton
// that maps any fixed-width byte string to at most one payload, or to no match.
//
// The construction walks the candidate instruction set byte by byte (one 256-way
// fan-out per byte position): walk a cursor forward, dispatch on the current
// byte, advance by however many bytes matched, generalized to arbitrarily many
// bytes with sharing of identical subtries.

// Entry is one candidate pattern fed into Build: RequiredMask/ValueMask are
// equal-length byte strings (one byte per instruction byte) where bit b of
// RequiredMask is 1 iff that bit is constrained, and bit b of ValueMask gives
// the required value at constrained positions.
type Entry struct {
	Tag          string
	RequiredMask []byte
	ValueMask    []byte
	Payload      int
}

// noMatch is the sentinel stored in ByteTrie.Bytes for "no candidate survives
// this byte"; it is never a valid block-start index nor a valid -(payload+1).
const noMatch = math.MinInt32

// ByteTrie is the flat table representation: a concatenation of 256-entry
// blocks. A non-negative entry is the start index of a child block; a negative
// entry other than noMatch encodes payload index p as -(p+1).
type ByteTrie struct {
	Bytes      []int32
	Payloads   []int
	Size       int
	StartIndex int
}

// AmbiguityError reports two or more candidate patterns that remain
// indistinguishable after consuming every byte of the instruction width.
type AmbiguityError struct {
	Width int
	Tags  []string
}

func (e *AmbiguityError) Error() string {
	return fmt.Sprintf("bittrie: ambiguous patterns at byte %d: %s", e.Width, strings.Join(e.Tags, ", "))
}

// buildTask is one pending block to construct: the surviving candidates at
// this depth, and where in the (already partially built) Bytes table the
// resulting block's start index should be written once it's known.
type buildTask struct {
	candidates  []int
	depth       int
	parentStart int // -1 for the root task
	parentByte  int
}

// Build compiles 'entries' into a ByteTrie over a fixed instruction width of
// 'width' bytes. Construction is depth-first: at each byte position the
// surviving candidate set is partitioned by every possible byte value 0-255,
// each partition either narrows to a single payload, narrows to none (no
// match), or recurses into a child block. Identical candidate sets at the
// same depth share one block (memoized by sorted tag list).
func Build(entries []Entry, width int) (*ByteTrie, error) {
	for _, e := range entries {
		if len(e.RequiredMask) != width || len(e.ValueMask) != width {
			return nil, fmt.Errorf("bittrie: entry %q has mask length != width %d", e.Tag, width)
		}
	}

	all := make([]int, len(entries))
	for i := range entries {
		all[i] = i
	}

	t := &ByteTrie{}
	memo := map[string]int32{}

	work := NewStack(buildTask{candidates: all, depth: 0, parentStart: -1})
	for work.Count() > 0 {
		task, _ := work.Pop()

		key := memoKey(entries, task.candidates, task.depth)
		if start, ok := memo[key]; ok {
			writeSlot(t, task, start)
			continue
		}

		start := int32(len(t.Bytes))
		t.Bytes = append(t.Bytes, make([]int32, 256)...)
		memo[key] = start
		writeSlot(t, task, start)

		for v := 0; v < 256; v++ {
			next := filterCandidates(entries, task.candidates, task.depth, byte(v))

			switch {
			case len(next) == 0:
				t.Bytes[int(start)+v] = noMatch

			case task.depth == width-1:
				if len(next) > 1 {
					return nil, &AmbiguityError{Width: task.depth + 1, Tags: tagsOf(entries, next)}
				}
				payloadIdx := len(t.Payloads)
				t.Payloads = append(t.Payloads, entries[next[0]].Payload)
				t.Bytes[int(start)+v] = int32(-(payloadIdx + 1))

			default:
				work.Push(buildTask{candidates: next, depth: task.depth + 1, parentStart: int(start), parentByte: v})
			}
		}
	}

	t.Size = len(t.Bytes)
	return t, nil
}

// writeSlot records a just-resolved block's start index into its parent's
// slot, or into StartIndex for the root task.
func writeSlot(t *ByteTrie, task buildTask, start int32) {
	if task.parentStart < 0 {
		t.StartIndex = int(start)
		return
	}
	t.Bytes[task.parentStart+task.parentByte] = start
}

// filterCandidates returns the indices (into 'entries') of every candidate in
// 'candidates' whose mask at byte 'depth' is consistent with byte value 'v'.
func filterCandidates(entries []Entry, candidates []int, depth int, v byte) []int {
	var next []int
	for _, idx := range candidates {
		e := entries[idx]
		if v&e.RequiredMask[depth] == e.ValueMask[depth]&e.RequiredMask[depth] {
			next = append(next, idx)
		}
	}
	return next
}

func tagsOf(entries []Entry, indices []int) []string {
	tags := make([]string, len(indices))
	for i, idx := range indices {
		tags[i] = entries[idx].Tag
	}
	return tags
}

// memoKey canonicalizes a candidate set for subtrie sharing: the set of
// entries remaining at a given depth fully determines the subtrie rooted
// there, so (depth, sorted tags) is a sound cache key.
func memoKey(entries []Entry, candidates []int, depth int) string {
	tags := tagsOf(entries, candidates)
	sort.Strings(tags)
	return fmt.Sprintf("%d|%s", depth, strings.Join(tags, ","))
}

// Decode walks 'data' from the trie's root, returning the number of bytes
// consumed and the matched payload. A return of (0, 0, false) means no
// candidate pattern matches any prefix of 'data' (or 'data' ran out first).
func (t *ByteTrie) Decode(data []byte) (consumed int, payload int, ok bool) {
	idx := t.StartIndex
	for i := 0; i < len(data); i++ {
		slot := idx + int(data[i])
		if slot < 0 || slot >= len(t.Bytes) {
			return 0, 0, false
		}

		entry := t.Bytes[slot]
		switch {
		case entry == noMatch:
			return 0, 0, false
		case entry < 0:
			return i + 1, t.Payloads[-(entry + 1)], true
		default:
			idx = int(entry)
		}
	}
	return 0, 0, false
}
