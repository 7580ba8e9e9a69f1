// Package scoring rates how well a listing matches the target profile as
// 100 × the cosine similarity of the two texts' embeddings.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"golang.org/x/sync/errgroup"
)

// ErrScoringFailed is recoverable: the caller gets a 0 score and carries on.
var ErrScoringFailed = errors.New("scoring failed")

// Encoder turns text into a fixed-length embedding vector.
type Encoder interface {
	Encode(ctx context.Context, text string) ([]float64, error)
}

// Scorer is built once per run and shared by every attempt. It keeps no
// state between calls.
type Scorer struct {
	enc Encoder
}

func NewScorer(enc Encoder) *Scorer {
	return &Scorer{enc: enc}
}

// Score returns a value in [0,100]. Empty input, an encoder failure or a
// degenerate vector yields 0 and an error wrapping ErrScoringFailed.
func (s *Scorer) Score(ctx context.Context, candidate, target string) (float64, error) {
	if strings.TrimSpace(candidate) == "" || strings.TrimSpace(target) == "" {
		return 0, fmt.Errorf("%w: empty input", ErrScoringFailed)
	}

	var a, b []float64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		a, err = s.encode(gctx, candidate)
		return err
	})
	g.Go(func() (err error) {
		b, err = s.encode(gctx, target)
		return err
	})
	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrScoringFailed, err)
	}

	sim, err := Cosine(a, b)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrScoringFailed, err)
	}
	return clamp(100*sim, 0, 100), nil
}

func (s *Scorer) encode(ctx context.Context, text string) (vec []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("encoder panic: %v", r)
		}
	}()
	return s.enc.Encode(ctx, text)
}

// Cosine is the cosine similarity of two equal-length, non-zero vectors.
func Cosine(a, b []float64) (float64, error) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, fmt.Errorf("vector length mismatch: %d vs %d", len(a), len(b))
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0, errors.New("zero vector")
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if math.IsNaN(sim) {
		return 0, errors.New("similarity is NaN")
	}
	return sim, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
