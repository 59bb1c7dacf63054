package ingestion

import (
	"context"

	"github.com/aqua777/graphrag-core/schema"
	"github.com/aqua777/graphrag-core/storage/kvstore"
)

// Collection suffixes for a KVDocStore's two collections, adapted from the
// teacher's KVDocumentStore (storage/docstore/kv_docstore.go) which splits a
// namespace into /data, /ref_doc_info and /metadata collections; this
// simpler DocStoreInterface only needs a hash collection and a body
// collection.
const (
	docHashCollectionSuffix = "/doc_hashes"
	docBodyCollectionSuffix = "/docs"
)

// KVDocStore adapts a kvstore.KVStore into the ingestion pipeline's
// DocStoreInterface, so any KVStore backend (in-memory, file-persisted) can
// back the pipeline's re-ingestion dedup/upsert bookkeeping.
type KVDocStore struct {
	kv             kvstore.KVStore
	hashCollection string
	bodyCollection string
}

// NewKVDocStore builds a KVDocStore over kv, namespacing its two
// collections under namespace (defaulting to "docstore").
func NewKVDocStore(kv kvstore.KVStore, namespace string) *KVDocStore {
	if namespace == "" {
		namespace = "docstore"
	}
	return &KVDocStore{
		kv:             kv,
		hashCollection: namespace + docHashCollectionSuffix,
		bodyCollection: namespace + docBodyCollectionSuffix,
	}
}

// GetDocumentHash returns the last-seen content hash for docID.
func (s *KVDocStore) GetDocumentHash(docID string) (string, bool) {
	val, err := s.kv.Get(context.Background(), docID, s.hashCollection)
	if err != nil || val == nil {
		return "", false
	}
	hash, ok := val["hash"].(string)
	return hash, ok
}

// SetDocumentHash records docID's current content hash.
func (s *KVDocStore) SetDocumentHash(docID string, hash string) {
	_ = s.kv.Put(context.Background(), docID, kvstore.StoredValue{"hash": hash}, s.hashCollection)
}

// GetAllDocumentHashes returns every tracked docID -> hash pair.
func (s *KVDocStore) GetAllDocumentHashes() map[string]string {
	all, err := s.kv.GetAll(context.Background(), s.hashCollection)
	if err != nil {
		return map[string]string{}
	}
	hashes := make(map[string]string, len(all))
	for docID, val := range all {
		if hash, ok := val["hash"].(string); ok {
			hashes[docID] = hash
		}
	}
	return hashes
}

// AddDocuments persists the node bodies backing docID -> hash entries.
func (s *KVDocStore) AddDocuments(nodes []schema.Node) error {
	ctx := context.Background()
	for _, node := range nodes {
		val := kvstore.StoredValue{
			"text":     node.Text,
			"metadata": node.Metadata,
		}
		if err := s.kv.Put(ctx, node.ID, val, s.bodyCollection); err != nil {
			return err
		}
	}
	return nil
}

// DeleteDocument removes docID's body and hash entries.
func (s *KVDocStore) DeleteDocument(docID string) error {
	ctx := context.Background()
	if _, err := s.kv.Delete(ctx, docID, s.bodyCollection); err != nil {
		return err
	}
	_, err := s.kv.Delete(ctx, docID, s.hashCollection)
	return err
}

// DeleteRefDoc removes a reference document the same way DeleteDocument
// does; the pipeline's ref-doc/node distinction collapses here since
// KVDocStore tracks one entry per docID, not per-node provenance.
func (s *KVDocStore) DeleteRefDoc(refDocID string) error {
	return s.DeleteDocument(refDocID)
}

var _ DocStoreInterface = (*KVDocStore)(nil)
