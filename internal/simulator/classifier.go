package simulator

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/kiranshivaraju/pixelflow/internal/config"
	"github.com/kiranshivaraju/pixelflow/pkg/models"
)

// Classifier decides the outcome of processing one item.
// A returned error is treated by the simulator as a processing failure and
// the item resolves to flag.
type Classifier interface {
	Name() string
	Classify(ctx context.Context, item models.ImageItem) (models.ItemStatus, error)
}

// RandomClassifier accepts with probability AcceptRatio and flags otherwise.
// It never rejects.
type RandomClassifier struct {
	mu          sync.Mutex
	rng         *rand.Rand
	acceptRatio float64
}

// NewRandomClassifier builds a RandomClassifier. A zero seed seeds from the clock.
func NewRandomClassifier(acceptRatio float64, seed uint64) *RandomClassifier {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &RandomClassifier{
		rng:         rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		acceptRatio: acceptRatio,
	}
}

func (c *RandomClassifier) Name() string { return "random" }

func (c *RandomClassifier) Classify(ctx context.Context, _ models.ImageItem) (models.ItemStatus, error) {
	if err := classifyContextErr(ctx); err != nil {
		return "", err
	}
	c.mu.Lock()
	roll := c.rng.Float64()
	c.mu.Unlock()
	if roll < c.acceptRatio {
		return models.ItemStatusAccept, nil
	}
	return models.ItemStatusFlag, nil
}

// classifyContextErr maps a finished context to the classifier's failure
// errors: a deadline is a timeout, a cancellation makes it unavailable.
func classifyContextErr(ctx context.Context) error {
	err := ctx.Err()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrClassifierTimeout, err)
	default:
		return fmt.Errorf("%w: %w", ErrClassifierUnavailable, err)
	}
}

// FixedClassifier always returns the same status.
type FixedClassifier struct {
	Status models.ItemStatus
}

func (c FixedClassifier) Name() string { return "fixed:" + string(c.Status) }

func (c FixedClassifier) Classify(_ context.Context, _ models.ImageItem) (models.ItemStatus, error) {
	return c.Status, nil
}

// NewClassifier constructs the bulk-processing classifier based on config.
// Called once at server startup.
func NewClassifier(cfg config.ClassifierConfig) (Classifier, error) {
	switch cfg.Kind {
	case "random":
		return NewRandomClassifier(cfg.AcceptRatio, cfg.Seed), nil
	case "accept":
		return FixedClassifier{Status: models.ItemStatusAccept}, nil
	default:
		return nil, fmt.Errorf("unknown classifier %q: must be one of random, accept", cfg.Kind)
	}
}
