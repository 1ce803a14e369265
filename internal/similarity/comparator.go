package similarity

import "fmt"

// PairScore is the result of scoring one unordered document pair.
type PairScore struct {
	NameA string  `json:"doc_a"`
	NameB string  `json:"doc_b"`
	Score float64 `json:"score"`
}

// Comparator accumulates named documents and scores them pairwise. It is
// not safe for concurrent use.
type Comparator struct {
	names []string
	docs  [][]string
}

// NewComparator returns an empty Comparator.
func NewComparator() *Comparator {
	return &Comparator{}
}

// AddDocument tokenizes text and appends it to the corpus. An empty name is
// replaced with "Document N", where N is the document's 1-based position.
// The recorded name is returned.
func (c *Comparator) AddDocument(text, name string) string {
	if name == "" {
		name = fmt.Sprintf("Document %d", len(c.docs)+1)
	}
	c.docs = append(c.docs, Tokenize(text))
	c.names = append(c.names, name)
	return name
}

// Len reports the number of documents in the corpus.
func (c *Comparator) Len() int {
	return len(c.docs)
}

// Names returns a copy of the document names in insertion order.
func (c *Comparator) Names() []string {
	names := make([]string, len(c.names))
	copy(names, c.names)
	return names
}

// TokenCount returns the token count of the i-th document, or 0 when i is
// out of range.
func (c *Comparator) TokenCount(i int) int {
	if i < 0 || i >= len(c.docs) {
		return 0
	}
	return len(c.docs[i])
}

// TotalTokens returns the token count summed over the whole corpus.
func (c *Comparator) TotalTokens() int {
	var total int
	for _, tokens := range c.docs {
		total += len(tokens)
	}
	return total
}

// Clear discards every document. Auto-assigned names restart at
// "Document 1" afterwards.
func (c *Comparator) Clear() {
	c.docs = nil
	c.names = nil
}

// ComparePair scores two texts in isolation without touching the corpus.
// See Compare for the exact semantics.
func (c *Comparator) ComparePair(text1, text2 string) float64 {
	return Compare(text1, text2)
}

// Vectors builds one TF-IDF vector per document, in insertion order, from a
// single IDF computed over the whole corpus. Adding or clearing documents
// changes the IDF and therefore every vector, so vectors taken from
// different corpus states are not comparable with each other.
func (c *Comparator) Vectors() []map[string]float64 {
	idf := InverseDocumentFrequency(c.docs)
	vectors := make([]map[string]float64, len(c.docs))
	for i, tokens := range c.docs {
		vectors[i] = TFIDF(TermFrequency(tokens), idf)
	}
	return vectors
}

// CompareAll scores every unordered document pair using corpus-wide IDF
// weights. Results are ordered by first index, then second: a corpus of
// documents A, B, C yields (A,B), (A,C), (B,C). Fewer than two documents
// yields an empty slice.
func (c *Comparator) CompareAll() []PairScore {
	if len(c.docs) < 2 {
		return []PairScore{}
	}
	vectors := c.Vectors()
	results := make([]PairScore, 0, len(vectors)*(len(vectors)-1)/2)
	for i := 0; i < len(vectors); i++ {
		for j := i + 1; j < len(vectors); j++ {
			results = append(results, PairScore{
				NameA: c.names[i],
				NameB: c.names[j],
				Score: CosineSimilarity(vectors[i], vectors[j]),
			})
		}
	}
	return results
}
