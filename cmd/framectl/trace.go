package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mos-project/mos-core/mm/frame"
)

type opKind int

const (
	opAlloc opKind = iota + 1
	opFree
)

func (k opKind) String() string {
	if k == opAlloc {
		return "alloc"
	}
	return "free"
}

// traceOp is one line of a trace:
//
//	alloc <size>
//	free  <addr>
//	free  #<n>     frees the result of the n-th alloc line
//
// Blank lines and lines starting with '#' are ignored.
type traceOp struct {
	Line int
	Kind opKind
	Arg  string
	Size uint64
	Addr frame.Addr
	Ref  int // n for "free #n", 0 otherwise
}

func parseTrace(r io.Reader) ([]traceOp, error) {
	var ops []traceOp
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		if len(fields) != 2 {
			return nil, fmt.Errorf("line %d: expected \"<op> <arg>\", got %q", line, sc.Text())
		}

		op := traceOp{Line: line, Arg: fields[1]}
		switch strings.ToLower(fields[0]) {
		case "alloc":
			size, err := parseSize(fields[1])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			op.Kind, op.Size = opAlloc, size
		case "free":
			op.Kind = opFree
			if ref, ok := strings.CutPrefix(fields[1], "#"); ok {
				n, err := strconv.Atoi(ref)
				if err != nil || n <= 0 {
					return nil, fmt.Errorf("line %d: invalid allocation reference %q", line, fields[1])
				}
				op.Ref = n
			} else {
				addr, err := parseAddr(fields[1])
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", line, err)
				}
				op.Addr = frame.Addr(addr)
			}
		default:
			return nil, fmt.Errorf("line %d: unknown op %q", line, fields[0])
		}
		ops = append(ops, op)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return ops, nil
}

// stepResult is the outcome of one replayed trace line.
type stepResult struct {
	Line  int    `json:"line"`
	Op    string `json:"op"`
	Arg   string `json:"arg"`
	Addr  string `json:"addr,omitempty"`
	Size  uint64 `json:"size,omitempty"`
	Error string `json:"error,omitempty"`
}

func (r stepResult) ok() bool { return r.Error == "" }

// replayTrace runs ops against fa. Allocator errors are recorded per step;
// only an invariant violation (with check set) stops the replay.
func replayTrace(fa *frame.BuddyAllocator, ops []traceOp, check bool) ([]stepResult, error) {
	results := make([]stepResult, 0, len(ops))
	allocs := make(map[int]frame.Addr) // alloc line ordinal -> address
	nAlloc := 0

	for _, op := range ops {
		res := stepResult{Line: op.Line, Op: op.Kind.String(), Arg: op.Arg}

		switch op.Kind {
		case opAlloc:
			nAlloc++
			addr, err := fa.Allocate(op.Size)
			if err != nil {
				res.Error = err.Error()
				break
			}
			allocs[nAlloc] = addr
			res.Addr = hex(addr)
			res.Size, _ = fa.SizeOf(addr)

		case opFree:
			addr := op.Addr
			if op.Ref > 0 {
				a, ok := allocs[op.Ref]
				if !ok {
					res.Error = fmt.Sprintf("allocation #%d did not succeed", op.Ref)
					break
				}
				addr = a
			}
			res.Addr = hex(addr)
			res.Size, _ = fa.SizeOf(addr)
			if err := fa.Free(addr); err != nil {
				res.Error = err.Error()
				res.Size = 0
			}
		}
		results = append(results, res)

		if check {
			if err := fa.Check(); err != nil {
				return results, fmt.Errorf("line %d: %w", op.Line, err)
			}
		}
	}
	return results, nil
}

func hex(addr frame.Addr) string {
	return fmt.Sprintf("0x%x", uint64(addr))
}

// isInvariantError reports whether err came from a failed Check.
func isInvariantError(err error) bool {
	var ie *frame.InvariantError
	return errors.As(err, &ie)
}
