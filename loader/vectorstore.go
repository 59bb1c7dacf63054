package loader

import (
	"context"

	"github.com/aqua777/graphrag-core/ingestion"
	chromemstore "github.com/aqua777/graphrag-core/rag/store/chromem"
	"github.com/aqua777/graphrag-core/schema"
)

// chromemVectorStore adapts a ChromemStore's (ids, error) Add signature down
// to the error-only shape ingestion.VectorStoreInterface expects; the
// pipeline never needs the returned ids since it tracks upsert bookkeeping
// through the docstore instead.
type chromemVectorStore struct {
	store *chromemstore.ChromemStore
}

// NewChromemVectorStore wraps store so it can be passed to
// ingestion.WithVectorStore.
func NewChromemVectorStore(store *chromemstore.ChromemStore) ingestion.VectorStoreInterface {
	return &chromemVectorStore{store: store}
}

func (a *chromemVectorStore) Add(ctx context.Context, nodes []schema.Node) error {
	_, err := a.store.Add(ctx, nodes)
	return err
}

func (a *chromemVectorStore) Delete(ctx context.Context, refDocID string) error {
	return a.store.Delete(ctx, refDocID)
}
