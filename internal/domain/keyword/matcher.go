// Package keyword finds keywords in byte streams with bounded memory.
//
// Input is consumed chunk by chunk. A carry of maxKeywordLen-1 bytes from the
// tail of the previous chunk is prepended to the next one, so a keyword split
// across a boundary is still found while two fragments separated by more than
// the carry never combine. Matching is ASCII case-insensitive on raw bytes: no
// decoding is attempted and malformed UTF-8 passes through untouched.
package keyword

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
)

// DefaultChunkSize is the read size used by Scan when none is given.
const DefaultChunkSize = 64 * 1024

// Matcher holds an immutable keyword set. It is safe for concurrent use;
// per-stream state lives in Stream.
type Matcher struct {
	keys   [][]byte
	labels []string
	maxLen int
}

// NewMatcher builds a matcher whose labels are the keywords themselves.
func NewMatcher(keywords ...string) *Matcher {
	m := make(map[string]string, len(keywords))
	for _, k := range keywords {
		m[k] = k
	}
	return NewLabeledMatcher(m)
}

// NewLabeledMatcher builds a matcher from keyword -> label. Several keywords
// may share a label; the label is reported once.
func NewLabeledMatcher(keywords map[string]string) *Matcher {
	m := &Matcher{}
	keys := make([]string, 0, len(keywords))
	for k := range keywords {
		if k != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		lk := lower([]byte(k))
		m.keys = append(m.keys, lk)
		m.labels = append(m.labels, keywords[k])
		if len(lk) > m.maxLen {
			m.maxLen = len(lk)
		}
	}
	return m
}

// MaxKeywordLen is the length of the longest keyword.
func (m *Matcher) MaxKeywordLen() int { return m.maxLen }

// NewStream starts a fresh scan.
func (m *Matcher) NewStream() *Stream {
	return &Stream{m: m, found: make([]bool, len(m.keys))}
}

// Scan reads r in chunkSize pieces and returns the labels found. The reader is
// never buffered beyond chunkSize+MaxKeywordLen-1 bytes. Reading stops early
// once every keyword has been seen.
func (m *Matcher) Scan(ctx context.Context, r io.Reader, chunkSize int) ([]string, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	s := m.NewStream()
	buf := make([]byte, chunkSize)
	for !s.Done() {
		if err := ctx.Err(); err != nil {
			return s.Found(), err
		}
		n, err := r.Read(buf)
		if n > 0 {
			_, _ = s.Write(buf[:n])
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return s.Found(), fmt.Errorf("read chunk: %w", err)
		}
	}
	return s.Found(), nil
}

// ScanChunks feeds a finite sequence of chunks.
func (m *Matcher) ScanChunks(chunks ...[]byte) []string {
	s := m.NewStream()
	for _, c := range chunks {
		if s.Done() {
			break
		}
		_, _ = s.Write(c)
	}
	return s.Found()
}

// Stream is the per-scan state. Not safe for concurrent use.
type Stream struct {
	m       *Matcher
	window  []byte
	found   []bool
	nFound  int
	scanned int64
}

// Write scans one chunk. It never fails and always reports len(p), which
// makes Stream usable as an io.Writer sink.
func (s *Stream) Write(p []byte) (int, error) {
	s.scanned += int64(len(p))
	if s.Done() || len(p) == 0 {
		return len(p), nil
	}

	carry := len(s.window)
	need := carry + len(p)
	if cap(s.window) < need {
		grown := make([]byte, carry, need)
		copy(grown, s.window)
		s.window = grown
	}
	s.window = s.window[:need]
	for i, b := range p {
		s.window[carry+i] = lowerByte(b)
	}

	for i, k := range s.m.keys {
		if s.found[i] {
			continue
		}
		if bytes.Contains(s.window, k) {
			s.found[i] = true
			s.nFound++
		}
	}

	keep := s.m.maxLen - 1
	if keep < 0 {
		keep = 0
	}
	if len(s.window) > keep {
		n := copy(s.window, s.window[len(s.window)-keep:])
		s.window = s.window[:n]
	}
	return len(p), nil
}

// Done reports whether every keyword has been found.
func (s *Stream) Done() bool { return s.nFound == len(s.m.keys) }

// Scanned is the number of input bytes consumed so far.
func (s *Stream) Scanned() int64 { return s.scanned }

// Found returns the sorted, de-duplicated labels seen so far.
func (s *Stream) Found() []string {
	seen := make(map[string]struct{}, s.nFound)
	out := make([]string, 0, s.nFound)
	for i, ok := range s.found {
		if !ok {
			continue
		}
		l := s.m.labels[i]
		if _, dup := seen[l]; dup {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

func lowerByte(b byte) byte {
	if 'A' <= b && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}

func lower(p []byte) []byte {
	out := make([]byte, len(p))
	for i, b := range p {
		out[i] = lowerByte(b)
	}
	return out
}
