// Package matchcache persists fuzzy match results per namespace so repeated
// runs over the same client data skip re-scoring strings they have already
// resolved.
package matchcache

import "context"

// NoStore is the namespace sentinel that disables persistence entirely.
const NoStore = "NoStore"

// Store loads and saves the source-key to best-match mapping for a
// namespace. Implementations replace the whole namespace on Save.
type Store interface {
	Load(ctx context.Context, namespace string) (map[string]string, error)
	Save(ctx context.Context, namespace string, mapping map[string]string) error
}
