package chip

import "fmt"

// key is the (manufacturerID, deviceID) pair the database is keyed on.
type key struct {
	mfg byte
	dev uint32
}

// Database is an immutable (manufacturerId, deviceId) -> Descriptor catalog.
// The zero value is an empty database; use NewDatabase or the process-wide
// Builtin() handle.
type Database struct {
	byKey map[key]Descriptor
}

// NewDatabase builds a Database from a slice of descriptors. It returns an
// error if two descriptors share a (ManufacturerID, DeviceID) key.
func NewDatabase(descriptors []Descriptor) (*Database, error) {
	db := &Database{byKey: make(map[key]Descriptor, len(descriptors))}
	for _, d := range descriptors {
		k := key{d.ManufacturerID, d.DeviceID}
		if existing, ok := db.byKey[k]; ok {
			return nil, fmt.Errorf("duplicate chip key mfg=0x%02X dev=0x%X: %s and %s", d.ManufacturerID, d.DeviceID, existing.Name, d.Name)
		}
		db.byKey[k] = d
	}
	return db, nil
}

// Lookup returns the descriptor for (mfg, dev), or false if absent.
func (db *Database) Lookup(mfg byte, dev uint32) (Descriptor, bool) {
	if db == nil {
		return Descriptor{}, false
	}
	d, ok := db.byKey[key{mfg, dev}]
	return d, ok
}

// FindByName returns the descriptor whose Name matches, or false if absent.
func (db *Database) FindByName(name string) (Descriptor, bool) {
	if db == nil {
		return Descriptor{}, false
	}
	for _, d := range db.byKey {
		if d.Name == name {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Len returns the number of chips in the database.
func (db *Database) Len() int {
	if db == nil {
		return 0
	}
	return len(db.byKey)
}

// All returns every descriptor in the database, order unspecified.
func (db *Database) All() []Descriptor {
	if db == nil {
		return nil
	}
	out := make([]Descriptor, 0, len(db.byKey))
	for _, d := range db.byKey {
		out = append(out, d)
	}
	return out
}

var builtin *Database

func init() {
	db, err := NewDatabase(builtinDescriptors)
	if err != nil {
		// The embedded catalog is a compile-time artifact; a duplicate key
		// here is a bug in builtinDescriptors, not a runtime condition.
		panic(fmt.Sprintf("chip: built-in database is inconsistent: %v", err))
	}
	builtin = db
}

// Builtin returns the process-wide immutable chip database embedded in the
// binary. It is never mutated after program start.
func Builtin() *Database { return builtin }
