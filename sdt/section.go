package sdt

import "github.com/zlm2012/sdtscan/ts"

type TableVariant uint8

const (
	Actual TableVariant = iota
	Other
)

func (v TableVariant) String() string {
	if v == Actual {
		return "Act"
	}
	return "Oth"
}

// Section is one service entry of an SDT section together with the table
// header it came from.
type Section struct {
	Variant                 TableVariant
	Version                 uint8
	OriginalNetworkID       uint16
	TransportStreamID       uint16
	ServiceID               uint16
	FreeCAMode              bool
	EITScheduleFlag         bool
	EITPresentFollowingFlag bool
	RunningStatus           ts.SDTRunningState
	Descriptors             []ts.Descriptor
}

// TagList returns the distinct descriptor tags in order of first appearance.
func (s *Section) TagList() []uint8 {
	var seen [256]bool
	tags := make([]uint8, 0, len(s.Descriptors))
	for _, d := range s.Descriptors {
		if !seen[d.Tag] {
			seen[d.Tag] = true
			tags = append(tags, d.Tag)
		}
	}
	return tags
}

func (s *Section) DescriptorsByTag(tag uint8) []ts.Descriptor {
	var out []ts.Descriptor
	for _, d := range s.Descriptors {
		if d.Tag == tag {
			out = append(out, d)
		}
	}
	return out
}

// SectionsFromFrame splits a wire section into one Section per service.
func SectionsFromFrame(f *ts.SDTFrame) []Section {
	variant := Other
	if f.IsActual() {
		variant = Actual
	}
	out := make([]Section, 0, len(f.Entries))
	for _, e := range f.Entries {
		out = append(out, Section{
			Variant:                 variant,
			Version:                 f.Version,
			OriginalNetworkID:       f.OriginalNetworkID,
			TransportStreamID:       f.TransportStreamID,
			ServiceID:               e.ServiceID,
			FreeCAMode:              e.FreeCAMode,
			EITScheduleFlag:         e.EITScheduleFlag,
			EITPresentFollowingFlag: e.EITPresentFollowingFlag,
			RunningStatus:           e.RunningState,
			Descriptors:             e.Descriptors,
		})
	}
	return out
}
