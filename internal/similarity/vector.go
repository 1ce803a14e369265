// Package similarity scores how alike two text documents are using a TF-IDF
// weighted vector space model and cosine similarity. Identical token content
// scores 1.0, documents sharing no vocabulary score 0.0.
//
// The package is pure computation: no I/O, no logging, no locking. Callers
// that share a Comparator across goroutines must synchronize access
// themselves.
package similarity

import "math"

// TermFrequency maps each distinct token to its share of the document:
// occurrences divided by total token count. An empty token slice yields an
// empty map; for non-empty input the values sum to 1.
func TermFrequency(tokens []string) map[string]float64 {
	tf := make(map[string]float64, len(tokens))
	if len(tokens) == 0 {
		return tf
	}
	for _, tok := range tokens {
		tf[tok]++
	}
	total := float64(len(tokens))
	for tok := range tf {
		tf[tok] /= total
	}
	return tf
}

// DocumentFrequencies counts, for every term, the number of documents
// containing it at least once. Repeats within a single document count once.
func DocumentFrequencies(docs [][]string) map[string]int {
	df := make(map[string]int)
	for _, tokens := range docs {
		seen := make(map[string]struct{}, len(tokens))
		for _, tok := range tokens {
			if _, dup := seen[tok]; dup {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}
	return df
}

// InverseDocumentFrequency computes smoothed IDF weights over a corpus:
//
//	idf(t) = ln((N+1) / (df(t)+1)) + 1
//
// The smoothing keeps every weight strictly positive, so terms appearing in
// all documents still contribute to similarity. An empty corpus yields an
// empty map.
func InverseDocumentFrequency(docs [][]string) map[string]float64 {
	df := DocumentFrequencies(docs)
	idf := make(map[string]float64, len(df))
	n := float64(len(docs))
	for term, count := range df {
		idf[term] = math.Log((n+1)/float64(count+1)) + 1
	}
	return idf
}

// TFIDF weights a document's term frequencies by corpus IDF. Terms absent
// from idf get weight 0; the result has exactly the keys of tf.
func TFIDF(tf, idf map[string]float64) map[string]float64 {
	weights := make(map[string]float64, len(tf))
	for term, f := range tf {
		weights[term] = f * idf[term]
	}
	return weights
}

// CosineSimilarity returns the cosine of the angle between two sparse
// vectors: the dot product over their key union divided by the product of
// their magnitudes. Each magnitude is taken over that vector's own entries.
// If either magnitude is zero the result is exactly 0.
func CosineSimilarity(a, b map[string]float64) float64 {
	var dot float64
	for term, wa := range a {
		dot += wa * b[term]
	}
	var magA, magB float64
	for _, w := range a {
		magA += w * w
	}
	for _, w := range b {
		magB += w * w
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

// Compare scores two texts against each other in isolation: the IDF corpus
// is exactly the two texts, so the result is independent of any other
// documents. Degenerate inputs (either text empty or without word
// characters) score 0.
func Compare(text1, text2 string) float64 {
	tokens1 := Tokenize(text1)
	tokens2 := Tokenize(text2)
	idf := InverseDocumentFrequency([][]string{tokens1, tokens2})
	v1 := TFIDF(TermFrequency(tokens1), idf)
	v2 := TFIDF(TermFrequency(tokens2), idf)
	return CosineSimilarity(v1, v2)
}
