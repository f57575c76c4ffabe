package adapter

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// HashDimension is the vector size of HashEmbedder
const HashDimension = 512

// HashEmbedder embeds text as a feature-hashed bag of words. It needs no
// model or network, which makes it the default for local stores. Dimension 0
// is a constant bias so that empty text still yields a unit vector.
type HashEmbedder struct{}

// NewHashEmbedder creates a HashEmbedder
func NewHashEmbedder() *HashEmbedder {
	return &HashEmbedder{}
}

func (h *HashEmbedder) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	return hashEmbed(text), nil
}

func (h *HashEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return hashEmbed(text), nil
}

func hashEmbed(text string) []float32 {
	vec := make([]float32, HashDimension)
	vec[0] = 1

	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, token := range tokens {
		hasher := fnv.New32a()
		_, _ = hasher.Write([]byte(token))
		idx := 1 + int(hasher.Sum32()%uint32(HashDimension-1))
		vec[idx]++
	}

	Normalize(vec)
	return vec
}

// Normalize scales v to unit length in place. A zero vector is left as is.
func Normalize(v []float32) {
	var sum float64
	for _, val := range v {
		sum += float64(val) * float64(val)
	}
	magnitude := float32(math.Sqrt(sum))
	if magnitude <= 0 {
		return
	}
	for i := range v {
		v[i] /= magnitude
	}
}

// CosineSimilarity returns the cosine similarity of two vectors, or 0 when
// their lengths differ or either is zero
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
