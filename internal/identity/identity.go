// Package identity decides which sales belong to the same customer.
//
// Customer mentions carry no reliable id: an order may name a social handle, a
// free-text name, both or neither. A Key is derived from the handle when one
// is present and from the name otherwise. Keys of different kinds are never
// unified, even when the names match, because plain names are not unique.
package identity

import (
	"strings"

	"lojadash/backend/internal/domain"
)

const (
	HandlePrefix = "HANDLE:"
	NamePrefix   = "NAME:"
)

// Key identifies a customer. Two mentions are the same customer only when
// their keys are equal.
type Key string

func (k Key) IsHandle() bool {
	return strings.HasPrefix(string(k), HandlePrefix)
}

// Value is the key without its kind prefix.
func (k Key) Value() string {
	if k.IsHandle() {
		return strings.TrimPrefix(string(k), HandlePrefix)
	}
	return strings.TrimPrefix(string(k), NamePrefix)
}

// Resolve derives the key of a mention. With neither a handle nor a name the
// result is the bare "NAME:" key shared by every anonymous sale.
func Resolve(name string, handle string) Key {
	if h, ok := NormalizeHandle(handle); ok {
		return Key(HandlePrefix + h)
	}
	return Key(NamePrefix + NormalizeName(name))
}

// NormalizeHandle upper-cases a handle and removes its "@". Empty values and
// the placeholders "N/A" and "-" are reported as absent.
func NormalizeHandle(handle string) (string, bool) {
	h := strings.TrimSpace(handle)
	if h == "" || h == "N/A" || h == "-" {
		return "", false
	}
	return strings.ToUpper(strings.Replace(h, "@", "", 1)), true
}

func NormalizeName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// Entry is a directory customer together with its key.
type Entry struct {
	Key      Key
	Customer domain.DirectoryCustomer
}

// Directory indexes the customer directory by handle and by name. It is built
// once per aggregation and never modified afterwards.
type Directory struct {
	byHandle map[string]domain.DirectoryCustomer
	byName   map[string]domain.DirectoryCustomer
	entries  []Entry
}

// NewDirectory indexes customers; for repeated handles or names the last row
// wins. Rows with neither a name nor a handle are not customers and are left
// out.
func NewDirectory(customers []domain.DirectoryCustomer) Directory {
	d := Directory{
		byHandle: make(map[string]domain.DirectoryCustomer, len(customers)),
		byName:   make(map[string]domain.DirectoryCustomer, len(customers)),
		entries:  make([]Entry, 0, len(customers)),
	}
	for _, c := range customers {
		handle, hasHandle := NormalizeHandle(c.SocialHandle)
		name := NormalizeName(c.Name)
		if !hasHandle && name == "" {
			continue
		}
		if hasHandle {
			d.byHandle[handle] = c
		}
		if name != "" {
			d.byName[name] = c
		}
		d.entries = append(d.entries, Entry{Key: Resolve(c.Name, c.SocialHandle), Customer: c})
	}
	return d
}

// Lookup finds the directory row for a key, consulting only the index of the
// key's own kind.
func (d Directory) Lookup(k Key) (domain.DirectoryCustomer, bool) {
	if k.IsHandle() {
		c, ok := d.byHandle[k.Value()]
		return c, ok
	}
	name := k.Value()
	if name == "" {
		return domain.DirectoryCustomer{}, false
	}
	c, ok := d.byName[name]
	return c, ok
}

// Entries returns the indexed directory rows in their original order.
func (d Directory) Entries() []Entry {
	return d.entries
}

func (d Directory) Len() int {
	return len(d.entries)
}
