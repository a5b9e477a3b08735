package otgsub

import (
	"slices"

	"github.com/npillmayer/addglyph/ot"
)

// RemoveLegacyWorkaround deletes a script entry which older versions of this
// tool added to make variation sequences work in some applications: a script
// 'hani' without language systems, whose default language system references
// a single, empty feature. The feature is deleted as well, unless another
// language system still references it.
//
// Returns true if the script entry has been found and removed.
func RemoveLegacyWorkaround(gsub *ot.GSubTable) bool {
	if gsub == nil {
		return false
	}
	i := slices.IndexFunc(gsub.Scripts, isLegacyWorkaround(gsub))
	if i < 0 {
		return false
	}
	fi := gsub.Scripts[i].DefaultLangSys.FeatureIndices[0]
	gsub.Scripts = slices.Delete(gsub.Scripts, i, i+1)
	tracer().Debugf("removed legacy script entry 'hani'")
	for _, ls := range gsub.AllLangSys() {
		if slices.Contains(ls.FeatureIndices, fi) {
			return true
		}
		if req, ok := ls.RequiredFeature.Unwrap(); ok && req == fi {
			return true
		}
	}
	removeFeature(gsub, fi)
	return true
}

func isLegacyWorkaround(gsub *ot.GSubTable) func(*ot.Script) bool {
	return func(s *ot.Script) bool {
		if s.Tag != ot.T("hani") || len(s.LangSystems) > 0 || s.DefaultLangSys == nil {
			return false
		}
		ls := s.DefaultLangSys
		if ls.RequiredFeature.IsSome() || len(ls.FeatureIndices) != 1 {
			return false
		}
		fi := int(ls.FeatureIndices[0])
		if fi >= len(gsub.Features) {
			return false
		}
		f := gsub.Features[fi]
		return len(f.LookupIndices) == 0 && f.Params == nil
	}
}

// removeFeature deletes a feature record and renumbers every feature index
// behind it. Feature variations substituting the removed feature are
// dropped.
func removeFeature(gsub *ot.GSubTable, fi uint16) {
	gsub.Features = slices.Delete(gsub.Features, int(fi), int(fi)+1)
	shift := func(inx uint16) uint16 {
		if inx > fi {
			return inx - 1
		}
		return inx
	}
	for _, ls := range gsub.AllLangSys() {
		for k, inx := range ls.FeatureIndices {
			ls.FeatureIndices[k] = shift(inx)
		}
		if req, ok := ls.RequiredFeature.Unwrap(); ok {
			ls.RequiredFeature = ot.Some(shift(req))
		}
	}
	for _, fv := range gsub.FeatureVariations {
		fv.Substitutions = slices.DeleteFunc(fv.Substitutions, func(s ot.FeatureSubstitution) bool {
			return s.FeatureIndex == fi
		})
		for k := range fv.Substitutions {
			fv.Substitutions[k].FeatureIndex = shift(fv.Substitutions[k].FeatureIndex)
		}
	}
	tracer().Debugf("removed feature %d, %d features left", fi, len(gsub.Features))
}
