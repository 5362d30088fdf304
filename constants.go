package airindex

// Manifest/page wire-format constants (§6.2). These must stay stable across
// a minor version or every index on storage becomes unreadable.
const (
	// Magic identifies an AirIndex manifest blob.
	Magic uint64 = 0x41495258444B4259 // "AIRXDKBY"

	// FormatVersion is the on-storage manifest/page format version.
	FormatVersion = 1
)

// Page size constraints (spec §4.2's P, the load/page-size budget).
const (
	// MinPageSize is the smallest allowed load P, in bytes.
	MinPageSize = 64

	// MaxPageSize is the largest allowed load P, in bytes.
	MaxPageSize = 1 << 24 // 16 MiB

	// DefaultPageSize is a conventional load P of one 4 KiB page. No code
	// in this package substitutes it for an unset palette entry.
	DefaultPageSize = 4096
)

// PageHeaderSize is the fixed page header: 4-byte little-endian piece_count,
// 4-byte reserved (spec §6.2 "Page wire format").
const PageHeaderSize = 8

// DefaultRootCap is the default upper bound on the root layer's single page
// size (spec §4.4 constraint (a)), independent of the load palette.
const DefaultRootCap = 65536

// DefaultTopK is the default top-k width used by the planner (spec §4.4).
const DefaultTopK = 1
