package catalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/shayne-snap/llmvram/data"
)

// ErrUnknownFamily is returned when a requested family is not in the catalog.
var ErrUnknownFamily = errors.New("unknown model family")

// DB holds the loaded catalog: the family list and each family's detail records.
type DB struct {
	cfg     *Config
	details map[string][]ModelDetail
}

// CacheDir returns the user cache directory for a downloaded catalog (config dir/llmvram/catalog).
func CacheDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "llmvram", "catalog"), nil
}

// EmbeddedSource is the catalog compiled into the binary.
func EmbeddedSource() Source {
	return FSSource{FS: data.Catalog}
}

// DefaultSource is the embedded catalog overlaid with the user cache when one exists.
func DefaultSource() Source {
	dir, err := CacheDir()
	if err != nil {
		return EmbeddedSource()
	}
	if _, err := os.Stat(filepath.Join(dir, ConfigFile)); err != nil {
		return EmbeddedSource()
	}
	return LayeredSource{Base: EmbeddedSource(), Overlay: FSSource{FS: os.DirFS(dir)}}
}

// NewDB loads the catalog from DefaultSource.
func NewDB(ctx context.Context) (*DB, error) {
	return Load(ctx, DefaultSource())
}

// Load reads the config and every family's details from src. A family whose details cannot be
// loaded is logged and left empty; a config that cannot be loaded is an error.
func Load(ctx context.Context, src Source) (*DB, error) {
	cfg, err := src.Config(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	db := &DB{cfg: cfg, details: make(map[string][]ModelDetail, len(cfg.Models))}
	for _, fam := range cfg.Models {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		details, err := src.Details(ctx, cfg, fam)
		if err != nil {
			log.Warn().Err(err).Str("family", fam.Name).Msg("failed to load model details")
			continue
		}
		for i := range details {
			details[i].ConfigName = fam.Name
		}
		db.details[fam.Name] = details
	}
	return db, nil
}

// Config returns the loaded catalog config.
func (db *DB) Config() *Config {
	return db.cfg
}

// Families returns all families in catalog order.
func (db *DB) Families() []Family {
	return db.cfg.Models
}

// FamilyNames returns the family names in catalog order.
func (db *DB) FamilyNames() []string {
	out := make([]string, 0, len(db.cfg.Models))
	for _, f := range db.cfg.Models {
		out = append(out, f.Name)
	}
	return out
}

// Family returns the family with the given name (case-insensitive).
func (db *DB) Family(name string) (*Family, bool) {
	for i := range db.cfg.Models {
		if strings.EqualFold(db.cfg.Models[i].Name, strings.TrimSpace(name)) {
			return &db.cfg.Models[i], true
		}
	}
	return nil, false
}

// FindFamily returns families whose name or descriptions contain query (case-insensitive).
func (db *DB) FindFamily(query string) []Family {
	q := strings.ToLower(query)
	var out []Family
	for _, f := range db.cfg.Models {
		if strings.Contains(strings.ToLower(f.Name), q) ||
			strings.Contains(strings.ToLower(f.Description), q) ||
			strings.Contains(strings.ToLower(f.DescriptionEn), q) {
			out = append(out, f)
		}
	}
	return out
}

// ResolveFamilies maps user-supplied names to canonical family names, dropping repeats.
// Empty input selects every family.
func (db *DB) ResolveFamilies(names []string) ([]string, error) {
	if len(names) == 0 {
		return db.FamilyNames(), nil
	}
	out := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		f, ok := db.Family(n)
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrUnknownFamily, n)
		}
		if seen[f.Name] {
			continue
		}
		seen[f.Name] = true
		out = append(out, f.Name)
	}
	return out, nil
}

// Details returns the detail records of the given families in the order given (all families when none).
func (db *DB) Details(families ...string) []ModelDetail {
	if len(families) == 0 {
		families = db.FamilyNames()
	}
	var out []ModelDetail
	for _, name := range families {
		if f, ok := db.Family(name); ok {
			out = append(out, db.details[f.Name]...)
		}
	}
	return out
}

// ErrUnsafePath is returned for a catalog file path that would leave the catalog root.
var ErrUnsafePath = errors.New("unsafe catalog path")

// CheckPath rejects rel unless it is a clean, slash-separated path inside the catalog root.
func CheckPath(rel string) error {
	if !fs.ValidPath(rel) || rel == "." || strings.Contains(rel, `\`) {
		return fmt.Errorf("%w %q", ErrUnsafePath, rel)
	}
	return nil
}

// Validate checks that every family's detail file stays inside the catalog root.
func (cfg *Config) Validate() error {
	for _, fam := range cfg.Models {
		if err := CheckPath(DetailPath(cfg, fam)); err != nil {
			return fmt.Errorf("family %s: %w", fam.Name, err)
		}
	}
	return nil
}

// WriteCache writes downloaded catalog files (paths relative to the catalog root) under dir.
// Every path is checked before anything is written.
func WriteCache(dir string, files map[string][]byte) error {
	for rel := range files {
		if err := CheckPath(rel); err != nil {
			return err
		}
	}
	for rel, body := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(p, body, 0644); err != nil {
			return err
		}
	}
	return nil
}
