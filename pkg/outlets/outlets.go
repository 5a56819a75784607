// Package outlets loads the media-bias registry that classifies news channels.
package outlets

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/samvad-hq/yt-bias-miner/internal/domain"
	"gopkg.in/yaml.v3"
)

// entry is one outlet as written in registry files.
type entry struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	Bias string `json:"bias" yaml:"bias"`
}

type listFile struct {
	Outlets []entry `json:"outlets" yaml:"outlets"`
}

// Registry is an immutable, ordered set of outlets keyed by channel ID.
type Registry struct {
	mu      sync.RWMutex
	outlets []domain.Outlet
	idx     map[string]domain.Outlet
}

// LoadRegistry reads a registry file. Two layouts are accepted: the
// media-bias map {"<channel id>": {"name": ..., "bias": ...}} and a YAML/JSON
// document with an `outlets:` list of {id, name, bias}.
func LoadRegistry(path string) (*Registry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("outlets file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open outlets file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read outlets file: %w", err)
	}

	entries, err := parseEntries(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, errors.New("outlets file contains no outlets")
	}
	return fromEntries(entries)
}

// NewRegistry builds a registry from already decoded outlets.
func NewRegistry(list []domain.Outlet) (*Registry, error) {
	entries := make([]entry, 0, len(list))
	for _, o := range list {
		entries = append(entries, entry{ID: o.ChannelID, Name: o.Name, Bias: string(o.Bias)})
	}
	return fromEntries(entries)
}

func fromEntries(entries []entry) (*Registry, error) {
	reg := &Registry{
		outlets: make([]domain.Outlet, 0, len(entries)),
		idx:     make(map[string]domain.Outlet, len(entries)),
	}
	for i, e := range entries {
		e = sanitizeEntry(e)
		out, err := validateEntry(e)
		if err != nil {
			return nil, fmt.Errorf("outlets[%d]: %w", i, err)
		}
		if _, exists := reg.idx[out.ChannelID]; exists {
			return nil, fmt.Errorf("duplicate outlet id %q", out.ChannelID)
		}
		reg.outlets = append(reg.outlets, out)
		reg.idx[out.ChannelID] = out
	}
	return reg, nil
}

func parseEntries(data []byte, ext string) ([]entry, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		ext string
		fn  func([]byte) ([]entry, error)
	}{
		{ext: ".json", fn: decodeJSON},
		{ext: ".yaml", fn: decodeYAML},
		{ext: ".yml", fn: decodeYAML},
	}

	var errs []error
	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		entries, err := d.fn(data)
		if err == nil {
			return entries, nil
		}
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("outlets file format not recognized: %w", errors.Join(errs...))
	}
	return nil, errors.New("outlets file format not recognized (expected YAML or JSON)")
}

func decodeJSON(data []byte) ([]entry, error) {
	var list listFile
	if err := json.Unmarshal(data, &list); err == nil && len(list.Outlets) > 0 {
		return list.Outlets, nil
	}

	// Keys are read as tokens so file order survives.
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode json outlets: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("decode json outlets: expected an object")
	}

	var entries []entry
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode json outlets: %w", err)
		}
		key, _ := keyTok.(string)
		var e entry
		if err := dec.Decode(&e); err != nil {
			return nil, fmt.Errorf("decode json outlet %q: %w", key, err)
		}
		e.ID = key
		entries = append(entries, e)
	}
	return entries, nil
}

func decodeYAML(data []byte) ([]entry, error) {
	var list listFile
	if err := yaml.Unmarshal(data, &list); err == nil && len(list.Outlets) > 0 {
		return list.Outlets, nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode yaml outlets: %w", err)
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, errors.New("decode yaml outlets: expected a mapping")
	}

	root := doc.Content[0]
	entries := make([]entry, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i].Value
		var e entry
		if err := root.Content[i+1].Decode(&e); err != nil {
			return nil, fmt.Errorf("decode yaml outlet %q: %w", key, err)
		}
		e.ID = key
		entries = append(entries, e)
	}
	return entries, nil
}

func sanitizeEntry(e entry) entry {
	e.ID = strings.TrimSpace(e.ID)
	e.Name = strings.TrimSpace(e.Name)
	e.Bias = strings.TrimSpace(e.Bias)
	return e
}

func validateEntry(e entry) (domain.Outlet, error) {
	if e.ID == "" {
		return domain.Outlet{}, errors.New("id is required")
	}
	if e.Name == "" {
		return domain.Outlet{}, fmt.Errorf("name is required for outlet %q", e.ID)
	}
	bias, err := domain.ParseBias(e.Bias)
	if err != nil {
		return domain.Outlet{}, fmt.Errorf("outlet %q: %w", e.ID, err)
	}
	return domain.Outlet{ChannelID: e.ID, Name: e.Name, Bias: bias}, nil
}

// Bias returns the classification of a channel.
func (r *Registry) Bias(channelID string) (domain.Bias, bool) {
	o, ok := r.Outlet(channelID)
	return o.Bias, ok
}

// Name returns the display name of a channel.
func (r *Registry) Name(channelID string) (string, bool) {
	o, ok := r.Outlet(channelID)
	return o.Name, ok
}

// Outlet returns the full entry for a channel.
func (r *Registry) Outlet(channelID string) (domain.Outlet, bool) {
	if r == nil {
		return domain.Outlet{}, false
	}
	channelID = strings.TrimSpace(channelID)
	if channelID == "" {
		return domain.Outlet{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.idx[channelID]
	return o, ok
}

// OutletsByBias returns the channel IDs classified as bias, in file order.
func (r *Registry) OutletsByBias(bias domain.Bias) []string {
	var ids []string
	for _, o := range r.All() {
		if o.Bias == bias {
			ids = append(ids, o.ChannelID)
		}
	}
	return ids
}

// All returns every outlet in file order.
func (r *Registry) All() []domain.Outlet {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Outlet, len(r.outlets))
	copy(out, r.outlets)
	return out
}

// IDs returns every channel ID in file order.
func (r *Registry) IDs() []string {
	all := r.All()
	ids := make([]string, 0, len(all))
	for _, o := range all {
		ids = append(ids, o.ChannelID)
	}
	return ids
}

// Len returns the number of outlets.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.outlets)
}
