package store

import (
	"github.com/pkg/errors"
)

// DBVersion is the on-disk schema identity recorded in the Version
// singleton, grounded on IndexerStoreVersion in
// original_source/rust/src/store/version_store_impl.rs.
type DBVersion struct {
	Major         uint32
	Minor         uint32
	Patch         uint32
	GitCommitHash string
}

// SetVersion records the current schema version, overwriting any
// previous value.
func (s *Store) SetVersion(gitCommitHash string) error {
	v := DBVersion{
		Major:         SchemaVersion.Major,
		Minor:         SchemaVersion.Minor,
		Patch:         SchemaVersion.Patch,
		GitCommitHash: gitCommitHash,
	}
	data, err := Encode(v)
	if err != nil {
		return errors.Wrap(err, "encoding db version")
	}
	return s.Update(func(b *Batch) error {
		return b.Put(Version, []byte("schema"), data)
	})
}

// CheckVersion reads the recorded schema version and errors if its major
// component differs from SchemaVersion.Major — a mismatch means the
// on-disk column family layout is incompatible, and the process must not
// proceed (spec.md §6: "fatal on schema mismatch").
func (s *Store) CheckVersion() (DBVersion, error) {
	var v DBVersion
	var found bool
	err := s.View(func(b *Batch) error {
		data, ok, err := b.Get(Version, []byte("schema"))
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		found = true
		return Decode(data, &v)
	})
	if err != nil {
		return v, errors.Wrap(err, "reading db version")
	}
	if !found {
		return v, nil
	}
	if v.Major != SchemaVersion.Major {
		return v, errors.Errorf("schema version mismatch: store is v%d.%d.%d, binary expects major v%d",
			v.Major, v.Minor, v.Patch, SchemaVersion.Major)
	}
	return v, nil
}
