// Package niddb loads the vitasdk NID database and resolves (library, NID)
// pairs to symbol names.
//
// The database is YAML, nested modules → libraries → functions/variables,
// with NID values written as integers or decimal/0x-hex strings. Multiple
// fragments may be loaded into one Database; on duplicate (library, NID)
// keys the last-loaded fragment wins.
package niddb

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrDatabaseFormat indicates malformed database nesting. It is fatal:
// a run cannot trust partial name data.
var ErrDatabaseFormat = errors.New("niddb: malformed database")

// NID is a 32-bit numeric identifier. It unmarshals from YAML integers and
// from decimal or 0x-hex strings.
type NID uint32

func (n *NID) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("%w: NID must be a scalar, got %s", ErrDatabaseFormat, node.Tag)
	}
	s := strings.TrimSpace(node.Value)
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return fmt.Errorf("%w: bad NID %q: %v", ErrDatabaseFormat, node.Value, err)
	}
	*n = NID(v)
	return nil
}

func (n NID) String() string { return fmt.Sprintf("0x%08X", uint32(n)) }

// Library holds the resolved name index for one exported library.
type Library struct {
	Name      string
	Module    string
	NID       uint32
	Kernel    bool
	Functions map[uint32]string // function NID → name
	Variables map[uint32]string // variable NID → name
}

// Database is the merged in-memory index.
type Database struct {
	byNID  map[uint32]*Library
	byName map[string]*Library
}

// New returns an empty database.
func New() *Database {
	return &Database{
		byNID:  make(map[uint32]*Library),
		byName: make(map[string]*Library),
	}
}

// Wire schema of a database fragment.
type fileSchema struct {
	Version  int                     `yaml:"version"`
	Firmware string                  `yaml:"firmware"`
	Modules  map[string]moduleSchema `yaml:"modules"`
}

type moduleSchema struct {
	NID       NID                      `yaml:"nid"`
	Libraries map[string]librarySchema `yaml:"libraries"`
}

type librarySchema struct {
	NID       NID            `yaml:"nid"`
	Kernel    bool           `yaml:"kernel"`
	Functions map[string]NID `yaml:"functions"`
	Variables map[string]NID `yaml:"variables"`
}

// LoadFile loads and merges one database fragment from disk.
// A missing file is reported to the caller; there is no silent fallback.
func (db *Database) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("niddb: open: %w", err)
	}
	defer f.Close()
	if err := db.Load(f); err != nil {
		return fmt.Errorf("niddb: %s: %w", path, err)
	}
	return nil
}

// Load parses one fragment and merges it into the database.
// Entries already present keep getting overwritten by later fragments
// (right-biased merge).
func (db *Database) Load(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("niddb: read: %w", err)
	}
	var fs fileSchema
	if err := yaml.Unmarshal(data, &fs); err != nil {
		if errors.Is(err, ErrDatabaseFormat) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrDatabaseFormat, err)
	}
	if fs.Modules == nil {
		return fmt.Errorf("%w: no modules mapping", ErrDatabaseFormat)
	}

	for modName, mod := range fs.Modules {
		for libName, libIn := range mod.Libraries {
			lib := db.byNID[uint32(libIn.NID)]
			if lib == nil || lib.Name != libName {
				if byName := db.byName[libName]; byName != nil {
					lib = byName
				} else {
					lib = &Library{
						Name:      libName,
						Functions: make(map[uint32]string),
						Variables: make(map[uint32]string),
					}
				}
			}
			lib.Module = modName
			lib.NID = uint32(libIn.NID)
			lib.Kernel = libIn.Kernel
			for name, nid := range libIn.Functions {
				lib.Functions[uint32(nid)] = name
			}
			for name, nid := range libIn.Variables {
				lib.Variables[uint32(nid)] = name
			}
			db.byNID[lib.NID] = lib
			db.byName[lib.Name] = lib
		}
	}
	return nil
}

// LibraryByNID returns the library indexed by its own NID.
func (db *Database) LibraryByNID(nid uint32) (*Library, bool) {
	lib, ok := db.byNID[nid]
	return lib, ok
}

// LibraryByName returns the library indexed by name.
func (db *Database) LibraryByName(name string) (*Library, bool) {
	lib, ok := db.byName[name]
	return lib, ok
}

// Lookup resolves a symbol name for (library name, NID), searching functions
// first, then variables. A miss is not an error: callers keep the
// NID-derived placeholder name.
func (db *Database) Lookup(libraryName string, nid uint32) (string, bool) {
	lib, ok := db.byName[libraryName]
	if !ok {
		return "", false
	}
	return lib.lookup(nid)
}

// LookupByLibraryNID resolves a symbol name for (library NID, NID). The
// import/export records carry the library NID; the name string in the image
// is advisory.
func (db *Database) LookupByLibraryNID(libraryNID uint32, nid uint32) (string, bool) {
	lib, ok := db.byNID[libraryNID]
	if !ok {
		return "", false
	}
	return lib.lookup(nid)
}

func (lib *Library) lookup(nid uint32) (string, bool) {
	if name, ok := lib.Functions[nid]; ok {
		return name, true
	}
	if name, ok := lib.Variables[nid]; ok {
		return name, true
	}
	return "", false
}

// Len returns the number of indexed libraries.
func (db *Database) Len() int { return len(db.byName) }

// Placeholder derives the default name for an unresolved NID, matching the
// platform convention of <LIBRARY>_<NID>.
func Placeholder(libraryName string, nid uint32) string {
	return fmt.Sprintf("%s_%08X", libraryName, nid)
}
