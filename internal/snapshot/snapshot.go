package snapshot

import (
	"sync/atomic"

	"github.com/rocketsafe/rocketsafe/internal/errors"
	"github.com/rocketsafe/rocketsafe/internal/metrics"
	"github.com/rocketsafe/rocketsafe/internal/models"
)

// Holder publishes the current immutable snapshot to request handlers. The
// refresh pipeline builds a complete replacement and swaps it in; readers
// never see a partially updated dataset.
type Holder struct {
	current atomic.Pointer[models.Snapshot]
}

// NewHolder creates an empty holder. Current returns ErrNoSnapshot until the
// first Swap.
func NewHolder() *Holder {
	return &Holder{}
}

// Swap publishes a new snapshot.
func (h *Holder) Swap(s *models.Snapshot) {
	h.current.Store(s)
	metrics.RecordSnapshotSwap(len(s.Alerts))
}

// Current returns the latest snapshot, or ErrNoSnapshot before the first
// successful feed fetch.
func (h *Holder) Current() (*models.Snapshot, error) {
	s := h.current.Load()
	if s == nil {
		return nil, errors.ErrNoSnapshot
	}
	return s, nil
}
