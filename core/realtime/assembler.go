package realtime

import (
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

// AudioAssembler concatenates audio chunks in the order they are added.
type AudioAssembler struct {
	mu     sync.Mutex
	buf    []byte
	chunks int
}

// Append adds a chunk. Empty chunks are counted but add no bytes.
func (a *AudioAssembler) Append(chunk []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.buf = append(a.buf, chunk...)
	a.chunks++
}

// Bytes returns a copy of everything appended so far.
func (a *AudioAssembler) Bytes() []byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]byte(nil), a.buf...)
}

func (a *AudioAssembler) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.buf)
}

func (a *AudioAssembler) Chunks() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.chunks
}

// TextAssembler keeps the latest partial transcript and the final segments.
// A partial replaces the previous partial, a final segment clears it.
type TextAssembler struct {
	mu      sync.Mutex
	partial string
	finals  []string
}

func (a *TextAssembler) SetPartial(text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.partial = text
}

func (a *TextAssembler) AddFinal(text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if text = strings.TrimSpace(text); text != "" {
		a.finals = append(a.finals, text)
	}
	a.partial = ""
}

func (a *TextAssembler) Partial() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.partial
}

// HasFinal reports whether any final segment has been added.
func (a *TextAssembler) HasFinal() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.finals) > 0
}

// Text returns the final transcript, falling back to the latest partial when
// no final segment arrived. Segments are separated by a space unless either
// side of the boundary is written without word spacing (Han, kana).
func (a *TextAssembler) Text() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.finals) == 0 {
		return strings.TrimSpace(a.partial)
	}

	var b strings.Builder
	for i, segment := range a.finals {
		if i > 0 && needsSpace(a.finals[i-1], segment) {
			b.WriteByte(' ')
		}
		b.WriteString(segment)
	}
	return b.String()
}

func needsSpace(prev, next string) bool {
	last, _ := utf8.DecodeLastRuneInString(prev)
	first, _ := utf8.DecodeRuneInString(next)
	return !unspaced(last) && !unspaced(first)
}

func unspaced(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana) ||
		r >= 0x3000 && r <= 0x303F || // CJK symbols and punctuation
		r >= 0xFF00 && r <= 0xFFEF // fullwidth forms
}
