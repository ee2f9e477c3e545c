package service

import (
	"fmt"

	"github.com/zlm2012/sdtscan/ts"
)

// Key identifies a service across networks. It is comparable and used
// directly as the directory's map key.
type Key struct {
	OriginalNetworkID uint16
	TransportStreamID uint16
	ServiceID         uint16
}

func MakeKey(originalNetworkID, transportStreamID, serviceID uint16) Key {
	return Key{originalNetworkID, transportStreamID, serviceID}
}

func (k Key) String() string {
	return fmt.Sprintf("%04x.%04x.%04x", k.OriginalNetworkID, k.TransportStreamID, k.ServiceID)
}

type Location uint8

const (
	FoundInSDTActual Location = 1 << iota
	FoundInSDTOther
)

func (l Location) String() string {
	switch l {
	case 0:
		return "none"
	case FoundInSDTActual:
		return "sdt-actual"
	case FoundInSDTOther:
		return "sdt-other"
	case FoundInSDTActual | FoundInSDTOther:
		return "sdt-actual|sdt-other"
	default:
		return fmt.Sprintf("location(0x%02x)", uint8(l))
	}
}

// Record holds everything learnt about one service. Fields whose merge rule
// is "last observation wins" are exported; monotonic state is only reachable
// through methods that cannot undo it.
type Record struct {
	key Key

	Name         string
	ProviderName string
	Type         ts.ServiceType

	EITScheduleAvailable         bool
	EITPresentFollowingAvailable bool
	RunningStatus                ts.SDTRunningState

	Genre              string
	PriceTag           uint32
	NumberOfHDChannels uint32

	scrambled    bool
	replacements []Key
	location     Location
}

func NewRecord(key Key) *Record {
	return &Record{key: key}
}

func (r *Record) Key() Key { return r.key }

// MarkScrambled ORs an observation into the scrambled flag.
func (r *Record) MarkScrambled(scrambled bool) { r.scrambled = r.scrambled || scrambled }
func (r *Record) IsScrambled() bool            { return r.scrambled }

func (r *Record) AddLocation(l Location)      { r.location |= l }
func (r *Record) HasLocation(l Location) bool { return r.location&l == l }
func (r *Record) Location() Location          { return r.location }

// AddReplacement records a replacement service; it reports false when the
// target was already known.
func (r *Record) AddReplacement(target Key) bool {
	for _, k := range r.replacements {
		if k == target {
			return false
		}
	}
	r.replacements = append(r.replacements, target)
	return true
}

// Replacements returns the replacement targets in discovery order.
func (r *Record) Replacements() []Key {
	return append([]Key(nil), r.replacements...)
}

func (r *Record) SetNaming(serviceType ts.ServiceType, providerName, name string) {
	r.Type = serviceType
	r.ProviderName = providerName
	r.Name = name
}

func (r *Record) SetGenre(text string)           { r.Genre = text }
func (r *Record) SetPriceTag(price uint32)       { r.PriceTag = price }
func (r *Record) SetNumberOfHDChannels(n uint32) { r.NumberOfHDChannels = n }
