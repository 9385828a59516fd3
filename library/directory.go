package library

import "sort"

// Directory owns every Holder, keyed by id. Holder and Account lifecycles
// are tied together by the Engine, not here.
type Directory struct {
	holders map[int]*Holder
}

// NewDirectory creates an empty directory.
func NewDirectory() *Directory {
	return &Directory{holders: make(map[int]*Holder)}
}

// Add inserts the holder, refusing a duplicate id.
func (d *Directory) Add(holder *Holder) error {
	if _, exists := d.holders[holder.ID]; exists {
		return ErrDuplicateID
	}
	d.holders[holder.ID] = holder
	return nil
}

// Remove deletes the holder.
func (d *Directory) Remove(id int) error {
	if _, exists := d.holders[id]; !exists {
		return ErrHolderNotFound
	}
	delete(d.holders, id)
	return nil
}

// Get looks up a holder by id.
func (d *Directory) Get(id int) (*Holder, error) {
	holder, ok := d.holders[id]
	if !ok {
		return nil, ErrHolderNotFound
	}
	return holder, nil
}

// VerifyCredential reports whether the holder exists and its stored
// credential equals secret verbatim. Credentials are opaque strings and are
// compared without hashing.
func (d *Directory) VerifyCredential(id int, secret string) bool {
	holder, ok := d.holders[id]
	return ok && holder.Credential == secret
}

// All returns every holder ordered by id.
func (d *Directory) All() []*Holder {
	out := make([]*Holder, 0, len(d.holders))
	for _, h := range d.holders {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len reports the number of holders.
func (d *Directory) Len() int { return len(d.holders) }

// Clear drops all holders. Used when reloading state from disk.
func (d *Directory) Clear() { d.holders = make(map[int]*Holder) }
