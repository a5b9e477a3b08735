/*
Package ot is a small, mutable model of an OpenType font file.

Package ot loads an SFNT font, decodes the tables needed for extending a
font's glyph repertoire into plain Go structures, and writes the font back to
disk. Intended audience for this package are:

▪︎ font editors which need to add glyphs, character mappings or glyph
substitutions to an existing font

▪︎ diagnostic tools which want to inspect the character map or the GSUB table
of a font

Tables interpreted by package ot are:

▪︎ head, hhea, vhea, maxp, OS/2: only the fields which have to stay consistent
when glyphs are added; everything else is kept as it was read

▪︎ hmtx, vmtx, loca, glyf: expanded to one entry per glyph

▪︎ post: glyph names for format 2

▪︎ cmap: subtable formats 4, 12 and 14 are decoded to maps, all other formats
are carried over byte by byte

▪︎ GSUB: script list, feature list, lookup list and feature variations, with
every lookup type and subtable format fully decoded

Every other table is kept as an opaque byte slice and written back unchanged.
When encoding, dependent fields (glyph counts, number of metrics, loca format,
checksums) are re-calculated from the decoded tables.

Package ot will not try to interpret glyph outlines, hinting instructions or
any of the positioning tables. Font collections and CFF glyph synthesis are not
supported.

# Offsets

OpenType table structures are linked by offsets, which may be 16 or 32 bits
wide. Package ot hides offsets from clients: decoding follows them, and
encoding lays out a graph of sub-tables (see type `packer`) and re-calculates
them. Identical sub-tables are shared.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © Norbert Pillmayer <norbert@pillmayer.com>
*/
package ot

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'addglyph.ot'
func tracer() tracing.Trace {
	return tracing.Select("addglyph.ot")
}
