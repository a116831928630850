// Package docmerge combines the independently uploaded documents of one bill
// submission into a single ordered PDF artifact. Pages are copied, not
// re-rendered: the merged artifact shows exactly the pages of all inputs in
// submission order.
package docmerge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/S-poovarasan/College-Fund-Management/internal/storage"
)

// Config holds merge pipeline configuration
type Config struct {
	// Timeout bounds one whole merge across all inputs
	Timeout time.Duration

	// MaxDocuments caps the number of inputs per submission
	MaxDocuments int
}

// Result describes a successfully stored artifact
type Result struct {
	Ref       string
	PageCount int
}

// Merger merges uploaded PDF documents and persists the artifact through an
// ArtifactStore.
type Merger struct {
	store  storage.ArtifactStore
	cfg    Config
	logger *zap.Logger
}

// NewMerger creates a new merger
func NewMerger(store storage.ArtifactStore, cfg Config, logger *zap.Logger) *Merger {
	return &Merger{
		store:  store,
		cfg:    cfg,
		logger: logger,
	}
}

// Merge validates every input, concatenates them in input order and stores
// the artifact under ref. Nothing is persisted unless all inputs merge: a
// timeout or any unreadable input aborts the whole operation.
func (m *Merger) Merge(ctx context.Context, ref string, inputs []string) (*Result, error) {
	if len(inputs) == 0 {
		return nil, ErrEmptyInput
	}
	if m.cfg.MaxDocuments > 0 && len(inputs) > m.cfg.MaxDocuments {
		return nil, fmt.Errorf("%w: %d inputs, limit %d", ErrTooManyDocuments, len(inputs), m.cfg.MaxDocuments)
	}

	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	pageCounts, err := m.probeInputs(ctx, inputs)
	if err != nil {
		return nil, err
	}

	expectedPages := 0
	for _, n := range pageCounts {
		expectedPages += n
	}

	m.logger.Info("Merging documents",
		zap.String("ref", ref),
		zap.Int("inputs", len(inputs)),
		zap.Int("expected_pages", expectedPages))

	merged, err := m.mergeToBytes(ctx, inputs, expectedPages)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("merge aborted: %w", err)
	}

	if err := m.store.Save(ref, merged); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	return &Result{Ref: ref, PageCount: expectedPages}, nil
}

// probeInputs opens every input concurrently to confirm it parses and to
// count its pages.
func (m *Merger) probeInputs(ctx context.Context, inputs []string) ([]int, error) {
	counts := make([]int, len(inputs))
	g, ctx := errgroup.WithContext(ctx)

	for i, path := range inputs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			n, err := countPages(path)
			if err != nil {
				return fmt.Errorf("%w: %s: %v", ErrUnreadableDocument, filepath.Base(path), err)
			}
			counts[i] = n
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return counts, nil
}

// mergeToBytes concatenates the inputs into a temp file, verifies the page
// count survived, and returns the bytes. The temp file never outlives the
// call.
func (m *Merger) mergeToBytes(ctx context.Context, inputs []string, expectedPages int) ([]byte, error) {
	tmp, err := os.CreateTemp("", "billmerge-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("merge aborted: %w", err)
	}

	if err := api.MergeCreateFile(inputs, tmpPath, false, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableDocument, err)
	}

	got, err := countPages(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("merged artifact unreadable: %w", err)
	}
	if got != expectedPages {
		return nil, fmt.Errorf("merged artifact has %d pages, expected %d", got, expectedPages)
	}

	return os.ReadFile(tmpPath)
}

// countPages opens a PDF and returns its page count
func countPages(path string) (int, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return 0, err
	}
	defer doc.Close()

	n := doc.NumPage()
	if n == 0 {
		return 0, fmt.Errorf("document has no pages")
	}
	return n, nil
}
