package target6502

import (
	"sort"

	"raster/internal/diag"
)

// SID register ranges (spec 4.7): voices occupy 7 bytes each, the
// filter block 4 bytes, and the volume control shares the filter's
// last register's low nibble.
const (
	SIDBase = 0xD400
	SIDEnd  = 0xD41C

	Voice1Start, Voice1End = 0xD400, 0xD406
	Voice2Start, Voice2End = 0xD407, 0xD40D
	Voice3Start, Voice3End = 0xD40E, 0xD414
	FilterStart, FilterEnd = 0xD415, 0xD418
	VolumeRegister         = 0xD418
)

// SIDRegion names the five disjoint regions a SID register write can
// fall into.
type SIDRegion int

const (
	SIDRegionNone SIDRegion = iota
	SIDVoice1
	SIDVoice2
	SIDVoice3
	SIDFilter
	SIDVolume
)

func (r SIDRegion) String() string {
	switch r {
	case SIDVoice1:
		return "voice 1"
	case SIDVoice2:
		return "voice 2"
	case SIDVoice3:
		return "voice 3"
	case SIDFilter:
		return "filter"
	case SIDVolume:
		return "volume"
	default:
		return "none"
	}
}

// ClassifySIDRegister maps a SID register address to its region. The
// volume control shares $D418 with the filter's mode/volume byte, so an
// address of exactly VolumeRegister classifies as SIDFilter -- callers that
// care about the low-nibble volume write pass it through
// IsVolumeWrite separately.
func ClassifySIDRegister(addr int) SIDRegion {
	switch {
	case addr >= Voice1Start && addr <= Voice1End:
		return SIDVoice1
	case addr >= Voice2Start && addr <= Voice2End:
		return SIDVoice2
	case addr >= Voice3Start && addr <= Voice3End:
		return SIDVoice3
	case addr >= FilterStart && addr <= FilterEnd:
		return SIDFilter
	default:
		return SIDRegionNone
	}
}

// IsVolumeWrite reports whether addr targets the volume nibble.
func IsVolumeWrite(addr int) bool { return addr == VolumeRegister }

// SIDWrite records one function's write to a SID register.
type SIDWrite struct {
	Function string
	Address  int
}

// SIDReport is the aggregate conflict analysis across every tracked
// write (spec 4.7): per-voice/filter/volume writer sets, the conflicts
// among them, and whether all three voices are used anywhere (a likely
// music-player IRQ timing requirement).
type SIDReport struct {
	WritersByRegion map[SIDRegion]map[string]bool
	VolumeWriters   map[string]bool
	AllVoicesUsed   bool
}

// AnalyzeSID partitions writes by region and reports every writer set,
// from which VoiceConflicts/FilterConflicts/VolumeConflicts derive
// their diagnostics.
func AnalyzeSID(writes []SIDWrite) SIDReport {
	report := SIDReport{
		WritersByRegion: make(map[SIDRegion]map[string]bool),
		VolumeWriters:   make(map[string]bool),
	}
	for _, w := range writes {
		region := ClassifySIDRegister(w.Address)
		if region != SIDRegionNone {
			if report.WritersByRegion[region] == nil {
				report.WritersByRegion[region] = make(map[string]bool)
			}
			report.WritersByRegion[region][w.Function] = true
		}
		if IsVolumeWrite(w.Address) {
			report.VolumeWriters[w.Function] = true
		}
	}
	report.AllVoicesUsed = len(report.WritersByRegion[SIDVoice1]) > 0 &&
		len(report.WritersByRegion[SIDVoice2]) > 0 &&
		len(report.WritersByRegion[SIDVoice3]) > 0
	return report
}

// Diagnose emits spec 4.7's SID conflict diagnostics: a warning for
// each voice or filter region written by more than one distinct
// function, a warning for multiple distinct volume controllers, and an
// informational note when all three voices are in use somewhere (the
// probable music-player IRQ timing requirement).
func (r SIDReport) Diagnose() *diag.Bag {
	bag := diag.NewBag()

	for _, region := range []SIDRegion{SIDVoice1, SIDVoice2, SIDVoice3} {
		writers := sortedWriters(r.WritersByRegion[region])
		if len(writers) > 1 {
			bag.Add(diag.Warnf(diag.CodeSIDVoiceConflict, diag.Coordinate{},
				"%s has %d distinct writers: %v", region, len(writers), writers))
		}
	}

	filterWriters := sortedWriters(r.WritersByRegion[SIDFilter])
	if len(filterWriters) > 1 {
		bag.Add(diag.Warnf(diag.CodeSIDFilterConflict, diag.Coordinate{},
			"SID filter has %d distinct writers: %v", len(filterWriters), filterWriters))
	}

	volumeWriters := sortedWriters(r.VolumeWriters)
	if len(volumeWriters) > 1 {
		bag.Add(diag.Warnf(diag.CodeSIDVolumeConflict, diag.Coordinate{},
			"SID volume has %d distinct writers: %v", len(volumeWriters), volumeWriters))
	}

	if r.AllVoicesUsed {
		bag.Add(diag.Notef(diag.CodeSIDAllVoicesUsed, diag.Coordinate{},
			"all three SID voices are in use; this program likely needs a music-player IRQ timing budget"))
	}

	return bag
}

func sortedWriters(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
