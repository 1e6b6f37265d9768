package mock

import (
	"context"
	"sync"

	"github.com/kiranshivaraju/pixelflow/internal/simulator"
	"github.com/kiranshivaraju/pixelflow/pkg/models"
)

// MockClassifier satisfies simulator.Classifier for testing.
type MockClassifier struct {
	Name_        string
	ClassifyFunc func(ctx context.Context, item models.ImageItem) (models.ItemStatus, error)

	mu    sync.Mutex
	calls []string
}

func (m *MockClassifier) Name() string { return m.Name_ }

func (m *MockClassifier) Classify(ctx context.Context, item models.ImageItem) (models.ItemStatus, error) {
	m.mu.Lock()
	m.calls = append(m.calls, item.ID)
	m.mu.Unlock()
	if m.ClassifyFunc != nil {
		return m.ClassifyFunc(ctx, item)
	}
	return models.ItemStatusAccept, nil
}

// Calls returns the ids of the items classified so far, in order.
func (m *MockClassifier) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// NewSequenceClassifier returns the given statuses in call order, repeating
// the last one once exhausted.
func NewSequenceClassifier(statuses ...models.ItemStatus) *MockClassifier {
	var mu sync.Mutex
	next := 0
	return &MockClassifier{
		Name_: "mock-sequence",
		ClassifyFunc: func(_ context.Context, _ models.ImageItem) (models.ItemStatus, error) {
			mu.Lock()
			defer mu.Unlock()
			s := statuses[min(next, len(statuses)-1)]
			next++
			return s, nil
		},
	}
}

// NewByIDClassifier answers from a fixed item id to status table. Unknown ids accept.
func NewByIDClassifier(table map[string]models.ItemStatus) *MockClassifier {
	return &MockClassifier{
		Name_: "mock-by-id",
		ClassifyFunc: func(_ context.Context, item models.ImageItem) (models.ItemStatus, error) {
			if s, ok := table[item.ID]; ok {
				return s, nil
			}
			return models.ItemStatusAccept, nil
		},
	}
}

// NewFailingClassifier returns a MockClassifier that always returns the given error.
func NewFailingClassifier(err error) *MockClassifier {
	return &MockClassifier{
		Name_: "mock-failing",
		ClassifyFunc: func(_ context.Context, _ models.ImageItem) (models.ItemStatus, error) {
			return "", err
		},
	}
}

// NewTimeoutClassifier returns a MockClassifier that blocks until context is cancelled.
func NewTimeoutClassifier() *MockClassifier {
	return &MockClassifier{
		Name_: "mock-timeout",
		ClassifyFunc: func(ctx context.Context, _ models.ImageItem) (models.ItemStatus, error) {
			<-ctx.Done()
			return "", simulator.ErrClassifierTimeout
		},
	}
}
