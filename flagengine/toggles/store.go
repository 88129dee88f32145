// Package toggles parses, validates and indexes toggle configuration documents.
package toggles

import (
	"encoding/json"
	"fmt"
	"sort"

	"golang.org/x/exp/maps"

	"github.com/featurekit/featurekit-go/flagengine/constraints"
	"github.com/featurekit/featurekit-go/flagengine/variants"
)

const (
	MinSupportedVersion = 1
	MaxSupportedVersion = 2
)

// Document is an immutable, indexed snapshot of a toggle configuration.
type Document struct {
	version  int
	toggles  []Toggle
	byName   map[string]int
	names    []string
	segments map[int]*Segment

	// parents[i] holds the index of each dependency of toggle i, or -1 when it does not exist.
	parents [][]int
	// order[i] lists the toggles to evaluate, parents first, before toggle i.
	order    [][]int
	cyclic   []bool
	warnings []*ConfigurationError
}

type rawDocument struct {
	Version  *int         `json:"version"`
	Features []rawToggle  `json:"features"`
	Segments []rawSegment `json:"segments"`
}

type rawToggle struct {
	Enabled *bool `json:"enabled"`
	*Toggle
}

type rawSegment struct {
	ID          *int                     `json:"id"`
	Name        string                   `json:"name"`
	Constraints []constraints.Constraint `json:"constraints"`
}

// Parse decodes and validates a toggle document. Structural problems are returned as *ParseError,
// *SchemaError or *UnsupportedVersionError; problems confined to single toggles are recorded as
// warnings on the returned document.
func Parse(data []byte) (*Document, error) {
	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{Err: err}
	}

	if raw.Version == nil {
		return nil, &SchemaError{Path: "version", Msg: "version is required"}
	}
	if *raw.Version < MinSupportedVersion || *raw.Version > MaxSupportedVersion {
		return nil, &UnsupportedVersionError{Version: *raw.Version}
	}

	doc := &Document{
		version:  *raw.Version,
		toggles:  make([]Toggle, 0, len(raw.Features)),
		byName:   make(map[string]int, len(raw.Features)),
		segments: make(map[int]*Segment, len(raw.Segments)),
	}

	for i, rs := range raw.Segments {
		seg, err := buildSegment(i, rs)
		if err != nil {
			return nil, err
		}
		if _, dup := doc.segments[seg.ID]; dup {
			return nil, &SchemaError{Path: fmt.Sprintf("segments[%d].id", i), Msg: fmt.Sprintf("duplicate segment id %d", seg.ID)}
		}
		doc.segments[seg.ID] = seg
	}

	for i, rt := range raw.Features {
		t, err := buildToggle(i, rt)
		if err != nil {
			return nil, err
		}
		if _, dup := doc.byName[t.Name]; dup {
			return nil, &SchemaError{Path: fmt.Sprintf("features[%d].name", i), Msg: fmt.Sprintf("duplicate toggle name %q", t.Name)}
		}
		doc.byName[t.Name] = len(doc.toggles)
		doc.toggles = append(doc.toggles, *t)
	}

	doc.names = maps.Keys(doc.byName)
	sort.Strings(doc.names)

	doc.checkSegmentReferences()
	doc.analyzeDependencies()

	return doc, nil
}

func buildSegment(i int, rs rawSegment) (*Segment, error) {
	if rs.ID == nil {
		return nil, &SchemaError{Path: fmt.Sprintf("segments[%d].id", i), Msg: "id is required"}
	}
	seg := &Segment{ID: *rs.ID, Name: rs.Name, Constraints: rs.Constraints}
	for j := range seg.Constraints {
		if err := seg.Constraints[j].Validate(); err != nil {
			return nil, &SchemaError{Path: fmt.Sprintf("segments[%d].constraints[%d]", i, j), Msg: err.Error()}
		}
		seg.Constraints[j].Prepare()
	}
	return seg, nil
}

func buildToggle(i int, rt rawToggle) (*Toggle, error) {
	path := fmt.Sprintf("features[%d]", i)
	if rt.Toggle == nil || rt.Name == "" {
		return nil, &SchemaError{Path: path + ".name", Msg: "name is required"}
	}
	if rt.Enabled == nil {
		return nil, &SchemaError{Path: path + ".enabled", Msg: "enabled is required"}
	}
	t := rt.Toggle
	t.Enabled = *rt.Enabled

	for j := range t.Strategies {
		if err := t.Strategies[j].Validate(); err != nil {
			return nil, &SchemaError{Path: fmt.Sprintf("%s.strategies[%d]", path, j), Msg: err.Error()}
		}
		t.Strategies[j].Prepare()
	}
	for j := range t.Variants {
		if err := t.Variants[j].Validate(); err != nil {
			return nil, &SchemaError{Path: fmt.Sprintf("%s.variants[%d]", path, j), Msg: err.Error()}
		}
	}
	if err := variants.ValidateWeights(t.Variants); err != nil {
		return nil, &SchemaError{Path: path + ".variants", Msg: err.Error()}
	}
	for j, dep := range t.Dependencies {
		if dep.Feature == "" {
			return nil, &SchemaError{Path: fmt.Sprintf("%s.dependencies[%d].feature", path, j), Msg: "feature is required"}
		}
	}
	return t, nil
}

func (d *Document) checkSegmentReferences() {
	for i := range d.toggles {
		t := &d.toggles[i]
		for _, s := range t.Strategies {
			for _, id := range s.Segments {
				if _, ok := d.segments[id]; !ok {
					d.warn(t.Name, fmt.Sprintf("strategy %q references unknown segment %d", s.Name, id))
				}
			}
		}
	}
}

func (d *Document) warn(toggle, msg string) {
	d.warnings = append(d.warnings, &ConfigurationError{Toggle: toggle, Msg: msg})
}

// Version returns the document schema version.
func (d *Document) Version() int {
	return d.version
}

// Len returns the number of toggles.
func (d *Document) Len() int {
	return len(d.toggles)
}

// Names returns all toggle names in lexical order. The slice must not be modified.
func (d *Document) Names() []string {
	return d.names
}

// Index returns the position of the named toggle.
func (d *Document) Index(name string) (int, bool) {
	i, ok := d.byName[name]
	return i, ok
}

// ToggleAt returns the toggle at index i.
func (d *Document) ToggleAt(i int) *Toggle {
	return &d.toggles[i]
}

// Toggle looks a toggle up by name.
func (d *Document) Toggle(name string) (*Toggle, bool) {
	i, ok := d.byName[name]
	if !ok {
		return nil, false
	}
	return &d.toggles[i], true
}

// Segment looks a segment up by id.
func (d *Document) Segment(id int) (*Segment, bool) {
	s, ok := d.segments[id]
	return s, ok
}

// SegmentConstraints implements strategies.SegmentLookup.
func (d *Document) SegmentConstraints(id int) ([]constraints.Constraint, bool) {
	s, ok := d.segments[id]
	if !ok {
		return nil, false
	}
	return s.Constraints, true
}

// Warnings returns the non-fatal configuration problems found while loading.
func (d *Document) Warnings() []*ConfigurationError {
	return d.warnings
}
