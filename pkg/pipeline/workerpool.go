package pipeline

import (
	"context"
	"sync"

	"github.com/shelfsync/shelfsync/pkg/models"
)

// forEach runs fn over the documents with at most workers goroutines.
// Records are independent: fn only ever mutates its own document, so no
// locking is needed beyond the channel. fn handles its own failures; a
// document that can't be processed never stops the batch.
func forEach(ctx context.Context, docs []*models.Document, workers int, fn func(ctx context.Context, doc *models.Document)) {
	if workers <= 0 {
		workers = 1
	}

	queue := make(chan *models.Document)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for doc := range queue {
				fn(ctx, doc)
			}
		}()
	}

	for _, doc := range docs {
		if ctx.Err() != nil {
			break
		}
		queue <- doc
	}
	close(queue)
	wg.Wait()
}
