package service

import (
	"errors"
	"fmt"
	"sort"
)

var ErrDuplicateKey = errors.New("service already in directory")

// Directory owns its records; callers receive pointers they must not keep
// beyond the directory's lifetime. It is not safe for concurrent use.
type Directory struct {
	byKey   map[Key]*Record
	order   []Key
	factory Factory
}

// NewDirectory creates an empty directory whose LookupOrCreate builds
// records with f. A nil factory falls back to NewRecord.
func NewDirectory(f Factory) *Directory {
	return &Directory{byKey: make(map[Key]*Record), factory: f}
}

func (d *Directory) Lookup(k Key) (*Record, bool) {
	r, ok := d.byKey[k]
	return r, ok
}

func (d *Directory) Add(r *Record) error {
	if _, ok := d.byKey[r.key]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateKey, r.key)
	}
	d.byKey[r.key] = r
	d.order = append(d.order, r.key)
	return nil
}

// LookupOrCreate returns the record for k, creating it on first sight.
// created reports whether the record is new.
func (d *Directory) LookupOrCreate(k Key) (r *Record, created bool) {
	if r, ok := d.byKey[k]; ok {
		return r, false
	}
	if d.factory != nil {
		r = d.factory.NewRecord(k)
	}
	if r == nil || r.key != k {
		r = NewRecord(k)
	}
	d.byKey[k] = r
	d.order = append(d.order, k)
	return r, true
}

func (d *Directory) Len() int {
	return len(d.byKey)
}

// Records returns the records in insertion order.
func (d *Directory) Records() []*Record {
	out := make([]*Record, 0, len(d.order))
	for _, k := range d.order {
		out = append(out, d.byKey[k])
	}
	return out
}

// Sorted returns the records ordered by key.
func (d *Directory) Sorted() []*Record {
	out := d.Records()
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].key, out[j].key
		if a.OriginalNetworkID != b.OriginalNetworkID {
			return a.OriginalNetworkID < b.OriginalNetworkID
		}
		if a.TransportStreamID != b.TransportStreamID {
			return a.TransportStreamID < b.TransportStreamID
		}
		return a.ServiceID < b.ServiceID
	})
	return out
}
