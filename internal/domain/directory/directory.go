// Package directory indexes people metadata by short name and resolves goal aliases.
package directory

import (
	"path"
	"sort"
	"strings"

	"github.com/okian/salesboard/internal/domain/model"
)

const defaultFileID = "default"

// Directory is an immutable people index built once per load.
type Directory struct {
	byShort     map[string]model.Person
	byCanonical map[string]model.Person
	order       []string // canonical names, sorted
	assetBase   string
}

// Option applies a configuration option to the Directory.
type Option func(*Directory)

// WithAssetBase sets the URL prefix for photos, icons and videos.
func WithAssetBase(base string) Option {
	return func(d *Directory) {
		d.assetBase = strings.TrimRight(base, "/")
	}
}

// New builds a Directory from the /people document. Records without a short
// name cannot appear in a snapshot and are returned as skipped.
func New(records map[string]model.PersonRecord, opts ...Option) (*Directory, []string) {
	d := &Directory{
		byShort:     make(map[string]model.Person, len(records)),
		byCanonical: make(map[string]model.Person, len(records)),
		assetBase:   "/static/uploads",
	}
	for _, opt := range opts {
		opt(d)
	}

	names := make([]string, 0, len(records))
	for name := range records {
		names = append(names, name)
	}
	sort.Strings(names)

	var skipped []string
	for _, name := range names {
		rec := records[name]
		short := strings.TrimSpace(rec.Short)
		if short == "" {
			skipped = append(skipped, name)
			continue
		}
		if _, dup := d.byShort[short]; dup {
			// first canonical name in sorted order keeps the short name
			skipped = append(skipped, name)
			continue
		}
		p := model.Person{
			CanonicalName: name,
			ShortName:     short,
			FileID:        strings.TrimSpace(rec.FileID),
			Photo:         rec.Photo,
			Icon:          rec.Icon,
			Video:         rec.Video,
			GoalAlias:     strings.TrimSpace(rec.GoalName),
		}
		d.byShort[short] = p
		d.byCanonical[name] = p
		d.order = append(d.order, name)
	}
	return d, skipped
}

// Empty returns a Directory with no people.
func Empty(opts ...Option) *Directory {
	d, _ := New(nil, opts...)
	return d
}

// Len returns the number of indexed people.
func (d *Directory) Len() int { return len(d.order) }

// ByShort looks a person up by snapshot name.
func (d *Directory) ByShort(short string) (model.Person, bool) {
	p, ok := d.byShort[short]
	return p, ok
}

// ByCanonical looks a person up by canonical name.
func (d *Directory) ByCanonical(name string) (model.Person, bool) {
	p, ok := d.byCanonical[name]
	return p, ok
}

// People returns everyone in canonical-name order.
func (d *Directory) People() []model.Person {
	out := make([]model.Person, 0, len(d.order))
	for _, name := range d.order {
		out = append(out, d.byCanonical[name])
	}
	return out
}

// ResolveAlias returns the first person, in canonical-name order, whose goal
// alias contains alias.
func (d *Directory) ResolveAlias(alias string) (model.Person, bool) {
	if alias == "" {
		return model.Person{}, false
	}
	for _, name := range d.order {
		p := d.byCanonical[name]
		if p.GoalAlias != "" && strings.Contains(p.GoalAlias, alias) {
			return p, true
		}
	}
	return model.Person{}, false
}

// DisplayName is the bar label: the file id when known, else the short name.
func (d *Directory) DisplayName(short string) string {
	if p, ok := d.byShort[short]; ok && p.FileID != "" {
		return p.FileID
	}
	return short
}

// PhotoURL returns the leader panel photo for short.
func (d *Directory) PhotoURL(short string) string {
	p, fileID := d.lookup(short)
	return d.asset("photos", orDefault(p.Photo, fileID+".png"))
}

// IconURL returns the round bar icon for short.
func (d *Directory) IconURL(short string) string {
	p, fileID := d.lookup(short)
	return d.asset("icons", orDefault(p.Icon, fileID+"-icon.png"))
}

// VideoURL returns the interstitial video for short.
func (d *Directory) VideoURL(short string) string {
	p, fileID := d.lookup(short)
	return d.asset("videos", orDefault(p.Video, fileID+".mp4"))
}

func (d *Directory) lookup(short string) (model.Person, string) {
	p := d.byShort[short]
	return p, orDefault(p.FileID, defaultFileID)
}

func (d *Directory) asset(kind, file string) string {
	return d.assetBase + "/" + path.Join(kind, file)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
