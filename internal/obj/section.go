// Derived from cmd/internal/ld/data.c's Section/Segment handling
// (addsection et al.) and davejbax-pixie's internal/efipe section-table
// model, generalized to the two-segment layout spec §4.4/§4.5 describe.
package obj

// Section flag triples (spec §6, "Binary constants (stable)").
const (
	RWX_RX = 05 // read + execute
	RWX_R  = 04 // read-only
	RWX_RW = 06 // read + write
)

// Section is a contiguous output range of one kind, e.g. ".data" or
// ".rodata" (spec §3, "Section").
type Section struct {
	Name    string
	Flags   int // one of the RWX_* triples
	Vaddr   uint64
	Len     uint64
	Segment *Segment
}

// Segment is a set of sections sharing memory protections and file storage
// rules (spec §3, "Segment"). The core has exactly two: Segtext
// (read-execute/read-only) and Segdata (read-write, partially
// zero-initialized).
type Segment struct {
	Name     string
	RWX      int
	Vaddr    uint64
	Length   uint64
	FileOff  uint64
	FileLen  uint64
	Sections []*Section
}

// AddSection appends a new section to the segment, wiring its back-pointer,
// and returns it. Sections accumulate in call order, which is why the
// layout engine must call this in the fixed order spec §4.4 specifies.
func (seg *Segment) AddSection(name string, flags int) *Section {
	sect := &Section{Name: name, Flags: flags, Segment: seg}
	seg.Sections = append(seg.Sections, sect)
	return sect
}

// Find returns the section with the given name, or nil.
func (seg *Segment) Find(name string) *Section {
	for _, s := range seg.Sections {
		if s.Name == name {
			return s
		}
	}
	return nil
}
