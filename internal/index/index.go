// Package index maintains a persistent provider ID to catalog slug mapping, so
// that a bare Unsplash photo ID can be turned back into the asset it produced.
// The index is derived data: it can always be rebuilt from a catalog snapshot,
// and a rebuild is skipped while the stored catalog checksum is unchanged.
package index

import (
	"encoding/json"

	"go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/pngnest/pngnest"
)

var Buckets = struct {
	Metadata  []byte
	Providers []byte
}{
	Metadata:  []byte("__metadata__"),
	Providers: []byte("providers"),
}

var MetadataKeys = struct {
	Version  []byte
	Checksum []byte
}{
	Version:  []byte("version"),
	Checksum: []byte("checksum"),
}

const currentVersion = 1

// Status describes what the index currently holds.
type Status struct {
	// Checksum of the catalog document the index was last rebuilt from; empty if the
	// index has never been rebuilt.
	Checksum string
	// Entries is the number of provider IDs in the index.
	Entries int
}

type Index interface {
	Close() error
	Entries() (map[string]string, error)
	Lookup(id string) (slug string, ok bool, err error)
	Rebuild(c *pngnest.Catalog, force bool) (bool, error)
	Status() (Status, error)
}

type index struct {
	*bbolt.DB
	log *zap.SugaredLogger
}

func New(path string) (Index, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bbolt.Tx) (err error) {
		// Ensure buckets exist
		var metadata *bbolt.Bucket
		if metadata, err = tx.CreateBucketIfNotExists(Buckets.Metadata); err != nil {
			return err
		}
		if _, err = tx.CreateBucketIfNotExists(Buckets.Providers); err != nil {
			return err
		}

		// Get the layout version the index was written with
		var version int
		if versionBytes := metadata.Get(MetadataKeys.Version); versionBytes == nil {
			version = 0
		} else if err = json.Unmarshal(versionBytes, &version); err != nil {
			return err
		}

		// An index written by a different layout version is wiped rather than
		// migrated; clearing the checksum forces the next Rebuild to repopulate it.
		if version != 0 && version != currentVersion {
			if err = tx.DeleteBucket(Buckets.Providers); err != nil {
				return err
			}
			if _, err = tx.CreateBucketIfNotExists(Buckets.Providers); err != nil {
				return err
			}
			if err = metadata.Delete(MetadataKeys.Checksum); err != nil {
				return err
			}
		}

		// Set the current layout version
		if versionBytes, err := json.Marshal(currentVersion); err != nil {
			return err
		} else if err = metadata.Put(MetadataKeys.Version, versionBytes); err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return index{db, zap.S().Named("index")}, nil
}

// Entries returns the full provider ID -> slug mapping.
func (d index) Entries() (map[string]string, error) {
	entries := make(map[string]string)
	err := d.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(Buckets.Providers).ForEach(func(k, v []byte) error {
			entries[string(k)] = string(v)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Lookup returns the catalog slug for a provider ID; ok is false when the ID is not
// indexed. The input must already be a bare ID, resolving raw strings is the caller's
// concern.
func (d index) Lookup(id string) (slug string, ok bool, err error) {
	err = d.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(Buckets.Providers).Get([]byte(id)); v != nil {
			slug = string(v)
			ok = true
		}
		return nil
	})
	if err != nil {
		return "", false, err
	}
	return slug, ok, nil
}

// Rebuild replaces the index contents with the provider IDs of the given catalog
// snapshot, preferring each asset's recorded ID and falling back to resolving one from
// the asset ID. Returns false without touching the index when the stored catalog
// checksum already matches, unless force is set; a snapshot without a checksum always
// rebuilds. Assets with no resolvable provider ID are skipped; when two assets share a
// provider ID the one earlier in the catalog wins.
func (d index) Rebuild(c *pngnest.Catalog, force bool) (changed bool, err error) {
	entries := make(map[string]string, c.Len())
	for _, asset := range c.Assets() {
		id := asset.UnsplashID
		if id == "" {
			id, _ = pngnest.DefaultResolver.Resolve(asset.ID)
		}
		if id == "" {
			continue
		}
		if _, exists := entries[id]; !exists {
			entries[id] = asset.Slug
		}
	}
	if c.Checksum() == "" {
		force = true
	}
	err = d.Update(func(tx *bbolt.Tx) error {
		metadata := tx.Bucket(Buckets.Metadata)
		if !force {
			if stored := metadata.Get(MetadataKeys.Checksum); stored != nil && string(stored) == c.Checksum() {
				return nil
			}
		}
		changed = true
		if err := tx.DeleteBucket(Buckets.Providers); err != nil {
			return err
		}
		providers, err := tx.CreateBucket(Buckets.Providers)
		if err != nil {
			return err
		}
		for id, slug := range entries {
			if err := providers.Put([]byte(id), []byte(slug)); err != nil {
				return err
			}
		}
		return metadata.Put(MetadataKeys.Checksum, []byte(c.Checksum()))
	})
	if err != nil {
		return false, err
	}
	if changed {
		d.log.Infow("provider index rebuilt", "entries", len(entries), "checksum", c.Checksum())
	} else {
		d.log.Debugw("provider index up to date", "checksum", c.Checksum())
	}
	return changed, nil
}

func (d index) Status() (Status, error) {
	var status Status
	err := d.View(func(tx *bbolt.Tx) error {
		metadata := tx.Bucket(Buckets.Metadata)
		if v := metadata.Get(MetadataKeys.Checksum); v != nil {
			status.Checksum = string(v)
		}
		status.Entries = tx.Bucket(Buckets.Providers).Stats().KeyN
		return nil
	})
	if err != nil {
		return Status{}, err
	}
	return status, nil
}
