package scoring

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"
)

const defaultHashDim = 512

// HashingEncoder is an offline bag-of-words embedding: unigrams and bigrams
// hashed into a fixed number of signed buckets. It needs no model server and
// is the fallback when no embeddings endpoint is configured.
type HashingEncoder struct {
	Dim int
}

func (h HashingEncoder) Encode(ctx context.Context, text string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dim := h.Dim
	if dim <= 0 {
		dim = defaultHashDim
	}
	vec := make([]float64, dim)
	tokens := tokenize(text)
	for i, tok := range tokens {
		add(vec, tok)
		if i > 0 {
			add(vec, tokens[i-1]+" "+tok)
		}
	}
	return vec, nil
}

func add(vec []float64, term string) {
	f := fnv.New64a()
	f.Write([]byte(term))
	sum := f.Sum64()
	idx := int(sum % uint64(len(vec)))
	if sum>>63 == 1 {
		vec[idx]--
	} else {
		vec[idx]++
	}
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#'
	})
}
