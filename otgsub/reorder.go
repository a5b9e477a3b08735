package otgsub

import (
	"fmt"
	"slices"

	"github.com/npillmayer/addglyph/ot"
)

func isVertical(tag ot.Tag) bool {
	return tag == ot.T("vert") || tag == ot.T("vrt2")
}

// ReorderLookups moves lookups appended by the editor in front of the
// trailing lookups of the original table which are referenced by vertical
// writing features only. Some applications expect these lookups to come
// last. Every lookup reference is renumbered.
//
// Context subtables of unknown format make ReorderLookups fail with
// ErrUnsupportedFormat without modifying the table.
func (e *Editor) ReorderLookups() error {
	n, initial := len(e.gsub.Lookups), e.initialLookups
	if n == initial {
		return nil
	}
	vertical := e.verticalOnlyLookups()
	ins := initial
	for ins > 0 && vertical[uint16(ins-1)] {
		ins--
	}
	if ins == initial {
		e.initialLookups = n
		return nil
	}
	records, err := lookupRecords(e.gsub)
	if err != nil {
		return err
	}
	order := make([]int, 0, n)
	for i := 0; i < ins; i++ {
		order = append(order, i)
	}
	for i := initial; i < n; i++ {
		order = append(order, i)
	}
	for i := ins; i < initial; i++ {
		order = append(order, i)
	}
	mapping := make([]uint16, n)
	lookups := make([]*ot.Lookup, n)
	for newInx, oldInx := range order {
		mapping[oldInx] = uint16(newInx)
		lookups[newInx] = e.gsub.Lookups[oldInx]
	}
	e.gsub.Lookups = lookups
	for _, rec := range records {
		if int(rec.LookupIndex) < n {
			rec.LookupIndex = mapping[rec.LookupIndex]
		}
	}
	for _, f := range allFeatures(e.gsub) {
		for k, li := range f.LookupIndices {
			if int(li) < n {
				f.LookupIndices[k] = mapping[li]
			}
		}
	}
	tracer().Infof("%d new lookups moved in front of %d vertical lookups", n-initial, initial-ins)
	e.initialLookups = n
	return nil
}

// verticalOnlyLookups collects lookups which are referenced by 'vert' or
// 'vrt2' features and by no other feature.
func (e *Editor) verticalOnlyLookups() map[uint16]bool {
	vertical := make(map[uint16]bool)
	other := make(map[uint16]bool)
	collect := func(tag ot.Tag, lookups []uint16) {
		for _, li := range lookups {
			if isVertical(tag) {
				vertical[li] = true
			} else {
				other[li] = true
			}
		}
	}
	for _, f := range e.gsub.Features {
		collect(f.Tag, f.LookupIndices)
	}
	// alternate features carry the tag of the feature they replace
	for _, fv := range e.gsub.FeatureVariations {
		for _, s := range fv.Substitutions {
			if s.Alternate != nil && int(s.FeatureIndex) < len(e.gsub.Features) {
				collect(e.gsub.Features[s.FeatureIndex].Tag, s.Alternate.LookupIndices)
			}
		}
	}
	for li := range other {
		delete(vertical, li)
	}
	return vertical
}

// allFeatures returns the features of the feature list followed by the
// alternate features of feature variations.
func allFeatures(gsub *ot.GSubTable) []*ot.Feature {
	features := slices.Clone(gsub.Features)
	for _, fv := range gsub.FeatureVariations {
		for _, s := range fv.Substitutions {
			if s.Alternate != nil {
				features = append(features, s.Alternate)
			}
		}
	}
	return features
}

// lookupRecords returns every nested lookup reference of the contextual
// subtables of a table.
func lookupRecords(gsub *ot.GSubTable) ([]*ot.SequenceLookup, error) {
	var records []*ot.SequenceLookup
	for i, l := range gsub.Lookups {
		for _, st := range l.Subtables {
			if ext, ok := st.(*ot.ExtensionSubst); ok {
				st = ext.Subtable
			}
			switch st := st.(type) {
			case *ot.ContextSubst:
				if st.Format < 1 || st.Format > 3 {
					return nil, fmt.Errorf("%w: lookup %d: context substitution format %d", ErrUnsupportedFormat, i, st.Format)
				}
				records = append(records, st.LookupRecords()...)
			case *ot.ChainContextSubst:
				if st.Format < 1 || st.Format > 3 {
					return nil, fmt.Errorf("%w: lookup %d: chained context substitution format %d", ErrUnsupportedFormat, i, st.Format)
				}
				records = append(records, st.LookupRecords()...)
			}
		}
	}
	return records, nil
}
