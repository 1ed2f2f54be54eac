package ir

import "github.com/sonarsource/astquery/internal/graph"

// TranslationTable maps original nodes to their replacements while a
// rewrite copies or moves part of a graph.
type TranslationTable struct {
	table map[graph.ID]*Node
}

// NewTranslationTable creates an empty table.
func NewTranslationTable() *TranslationTable {
	return &TranslationTable{table: make(map[graph.ID]*Node)}
}

// Add records that original is replaced by translated.
func (t *TranslationTable) Add(original, translated *Node) {
	t.table[original.id] = translated
}

// Has reports whether original has a translation.
func (t *TranslationTable) Has(original *Node) bool {
	_, ok := t.table[original.id]
	return ok
}

// Get returns the translation of original, or original itself.
func (t *TranslationTable) Get(original *Node) *Node {
	if n, ok := t.table[original.id]; ok {
		return n
	}
	return original
}

// Remove forgets the translation of original.
func (t *TranslationTable) Remove(original *Node) {
	delete(t.table, original.id)
}

// Len returns the number of translations.
func (t *TranslationTable) Len() int {
	return len(t.table)
}
