package config

import (
	"bytes"
	"context"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/oneconcern/datalink/pkg/errors"
	"github.com/oneconcern/datalink/pkg/storage"
	"github.com/oneconcern/datalink/pkg/storage/localfs"
	"github.com/oneconcern/datalink/pkg/storage/status"
)

type storeKey struct {
	loc     Location
	private bool
}

// Resolver resolves settings for a working copy
type Resolver struct {
	fs          afero.Fs
	home        string
	root        string
	searchOrder []Location
	stores      map[storeKey]storage.Store
	l           *zap.Logger
}

// Option for the resolver
type Option func(*Resolver)

// WithFs sets the file system holding settings documents
func WithFs(fs afero.Fs) Option {
	return func(r *Resolver) {
		if fs != nil {
			r.fs = fs
		}
	}
}

// WithHome sets the root of the global location
func WithHome(home string) Option {
	return func(r *Resolver) {
		if home != "" {
			r.home = home
		}
	}
}

// WithLogger sets a logger for the resolver
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.l = l
		}
	}
}

// New builds a resolver for the working copy at root.
//
// An empty root yields a resolver for global settings only.
func New(root string, opts ...Option) (*Resolver, error) {
	r := &Resolver{
		fs:          afero.NewOsFs(),
		home:        DefaultHome(),
		root:        root,
		searchOrder: DefaultSearchOrder,
		l:           zap.NewNop(),
	}
	for _, apply := range opts {
		apply(r)
	}

	r.stores = make(map[storeKey]storage.Store, 4)
	for _, loc := range DefaultSearchOrder {
		if loc == Local && root == "" {
			continue
		}
		for _, private := range []bool{false, true} {
			s, err := localfs.NewAtomic(afero.NewBasePathFs(r.fs, documentDir(loc, r.home, r.root, private)))
			if err != nil {
				return nil, err
			}
			r.stores[storeKey{loc: loc, private: private}] = s
		}
	}
	return r, nil
}

// Root of the working copy, if any
func (r *Resolver) Root() string {
	return r.root
}

// Home is the root of the global location
func (r *Resolver) Home() string {
	return r.home
}

// Restrict returns a resolver searching only the given locations, in order
func (r *Resolver) Restrict(locs ...Location) *Resolver {
	c := *r
	c.searchOrder = append([]Location(nil), locs...)
	return &c
}

// CreateLocations creates the folders of the local location
func (r *Resolver) CreateLocations(ctx context.Context) error {
	if r.root == "" {
		return ErrNoWorkingCopy
	}
	for _, private := range []bool{false, true} {
		if err := r.fs.MkdirAll(documentDir(Local, r.home, r.root, private), 0700); err != nil {
			return ErrWriteSettings.Wrap(err)
		}
	}
	return nil
}

// Get the effective value of a parameter.
//
// The value is either a string or a JSON object. An unset parameter is reported as not found.
func (r *Resolver) Get(ctx context.Context, p Parameter) (interface{}, bool, error) {
	var (
		value interface{}
		found bool
	)
	for _, loc := range r.searchOrder {
		if loc == Global && p.ExcludedFromGlobal {
			continue
		}
		doc, err := r.load(ctx, loc, p.Private, p.Category)
		if err != nil {
			return nil, false, err
		}
		if v, ok := doc[p.Name]; ok && !isEmpty(v) {
			value, found = v, true
			continue
		}
		if loc == Global && p.Default != nil {
			if d := p.Default(); d != "" {
				value, found = d, true
			}
		}
	}
	return value, found, nil
}

// GetString resolves a parameter as a string. JSON values are serialized.
func (r *Resolver) GetString(ctx context.Context, p Parameter) (string, error) {
	v, found, err := r.Get(ctx, p)
	if err != nil || !found {
		return "", err
	}
	return stringify(v), nil
}

// GetAt reads the value stored at one location, without defaults
func (r *Resolver) GetAt(ctx context.Context, p Parameter, loc Location) (interface{}, bool, error) {
	doc, err := r.load(ctx, loc, p.Private, p.Category)
	if err != nil {
		return nil, false, err
	}
	v, ok := doc[p.Name]
	if !ok || isEmpty(v) {
		return nil, false, nil
	}
	return v, true, nil
}

// Set a parameter from its raw value.
//
// JSON values get their top-level keys upper-cased. When two keys collide, nothing is written.
func (r *Resolver) Set(ctx context.Context, p Parameter, raw string, loc Location) error {
	if loc == Global && p.ExcludedFromGlobal {
		return ErrNotGlobal.WrapMessage("%s", p)
	}
	v, err := p.parse(raw)
	if err != nil {
		return err
	}
	return r.put(ctx, p.Category, p.Private, loc, map[string]interface{}{p.Name: v})
}

// SetJSONField upserts one field of a JSON parameter, keeping the other fields stored at loc.
//
// An empty value removes the field.
func (r *Resolver) SetJSONField(ctx context.Context, p Parameter, field, value string, loc Location) error {
	if !p.IsJSON() {
		return ErrInvalidValue.WrapMessage("%s is not a JSON setting", p)
	}
	if loc == Global && p.ExcludedFromGlobal {
		return ErrNotGlobal.WrapMessage("%s", p)
	}
	current, _, err := r.GetAt(ctx, p, loc)
	if err != nil {
		return err
	}
	obj := asObject(current)
	key := strings.ToUpper(field)
	if value == "" {
		delete(obj, key)
	} else {
		obj[key] = value
	}
	return r.put(ctx, p.Category, p.Private, loc, map[string]interface{}{p.Name: obj})
}

// Clear a parameter at a location. An empty name clears the whole category at this location.
func (r *Resolver) Clear(ctx context.Context, category Category, name string, loc Location) error {
	params := Parameters(category)
	if name != "" {
		p, err := Lookup(category, name)
		if err != nil {
			return err
		}
		params = []Parameter{p}
	}
	for _, private := range []bool{false, true} {
		removed := make(map[string]interface{})
		for _, p := range params {
			if p.Private == private {
				removed[p.Name] = nil
			}
		}
		if len(removed) == 0 {
			continue
		}
		if err := r.put(ctx, category, private, loc, removed); err != nil {
			return err
		}
	}
	r.l.Debug("cleared settings", zap.String("category", string(category)), zap.String("name", name), zap.String("location", string(loc)))
	return nil
}

// ConfigDict is the effective value of every set parameter in a category
func (r *Resolver) ConfigDict(ctx context.Context, category Category) (map[string]interface{}, error) {
	res := make(map[string]interface{})
	for _, p := range Parameters(category) {
		v, found, err := r.Get(ctx, p)
		if err != nil {
			return nil, err
		}
		if found {
			res[p.Name] = v
		}
	}
	return res, nil
}

// Missing returns the parameters which resolve to no value
func (r *Resolver) Missing(ctx context.Context, params ...Parameter) ([]string, error) {
	var missing []string
	for _, p := range params {
		_, found, err := r.Get(ctx, p)
		if err != nil {
			return nil, err
		}
		if !found {
			missing = append(missing, p.String())
		}
	}
	return missing, nil
}

// Require fails with the exact list of missing parameters
func (r *Resolver) Require(ctx context.Context, params ...Parameter) error {
	missing, err := r.Missing(ctx, params...)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return ErrMissingParameters.WrapMessage("%s", strings.Join(missing, ", "))
	}
	return nil
}

// put merges values into the document of a location. A nil value removes the key.
func (r *Resolver) put(ctx context.Context, category Category, private bool, loc Location, values map[string]interface{}) error {
	s, ok := r.stores[storeKey{loc: loc, private: private}]
	if !ok {
		return ErrNoWorkingCopy
	}
	doc, err := r.load(ctx, loc, private, category)
	if err != nil {
		return err
	}
	for k, v := range values {
		if v == nil {
			delete(doc, k)
			continue
		}
		doc[k] = v
	}
	b, err := jsoniter.MarshalIndent(doc, "", "  ")
	if err != nil {
		return ErrWriteSettings.Wrap(err)
	}
	if err := s.Put(ctx, documentKey(category), bytes.NewReader(b), storage.OverWrite); err != nil {
		return ErrWriteSettings.WrapWithLog(r.l, err, zap.Stringer("store", s), zap.String("category", string(category)))
	}
	r.l.Debug("wrote settings", zap.Stringer("store", s), zap.String("category", string(category)))
	return nil
}

func (r *Resolver) load(ctx context.Context, loc Location, private bool, category Category) (map[string]interface{}, error) {
	doc := make(map[string]interface{})
	s, ok := r.stores[storeKey{loc: loc, private: private}]
	if !ok {
		return doc, nil
	}
	b, err := storage.ReadAll(ctx, s, documentKey(category))
	if err != nil {
		if errors.Is(err, status.ErrNotExists) {
			return doc, nil
		}
		return nil, ErrReadSettings.Wrap(err)
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return doc, nil
	}
	if err := jsoniter.Unmarshal(b, &doc); err != nil {
		return nil, ErrReadSettings.WrapMessage("%s/%s: %v", s, documentKey(category), err)
	}
	return doc, nil
}

func isEmpty(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	default:
		return false
	}
}

func stringify(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := jsoniter.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
