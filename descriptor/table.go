package descriptor

import (
	"fmt"

	"github.com/zlm2012/sdtscan/genre"
	"github.com/zlm2012/sdtscan/logger"
	"github.com/zlm2012/sdtscan/service"
	"github.com/zlm2012/sdtscan/ts"
)

type Naming interface {
	SetNaming(serviceType ts.ServiceType, providerName, name string)
}

type Linking interface {
	AddReplacement(target service.Key) bool
}

type Classification interface {
	SetGenre(text string)
}

type Pricing interface {
	SetPriceTag(price uint32)
	SetNumberOfHDChannels(n uint32)
}

// Target is what a descriptor may update. *service.Record implements it.
type Target interface {
	Naming
	Linking
	Classification
	Pricing
}

type Outcome uint8

const (
	NoEffect Outcome = iota
	Applied
	Rejected
)

func (o Outcome) String() string {
	switch o {
	case NoEffect:
		return "no-effect"
	case Applied:
		return "applied"
	case Rejected:
		return "rejected"
	default:
		return fmt.Sprintf("outcome(%d)", uint8(o))
	}
}

// DecodeError reports a descriptor payload that could not be decoded. The
// target is left untouched.
type DecodeError struct {
	Tag  uint8
	Name string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s descriptor 0x%02x: %v", e.Name, e.Tag, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ApplyFunc decodes data and updates t. It must not modify t when it
// returns an error.
type ApplyFunc func(data []byte, t Target) (Outcome, error)

type Entry struct {
	Name  string
	Apply ApplyFunc
}

type Options struct {
	// PrimaryProductID selects the price tag product copied to the record.
	PrimaryProductID uint8
	// Text decodes provider and service names; nil copies raw bytes. A
	// name Text cannot decode is kept as its raw bytes.
	Text TextDecoder
	// Log reports text fallbacks. Nil discards them.
	Log logger.Logger
}

// Table maps descriptor tags to their decoders. Unknown tags have no effect.
type Table struct {
	entries map[uint8]Entry
}

func NewTable(opts Options) *Table {
	t := &Table{entries: make(map[uint8]Entry)}
	t.Register(ts.ServiceDescTagID, Entry{"service", applyService(rawFallback(opts.Text, opts.Log))})
	t.Register(ts.LinkageDescTagID, Entry{"linkage", applyLinkage})
	t.Register(ts.CAIdentifierDescTagID, Entry{"CA identifier", nil})
	t.Register(ts.ContentDescTagID, Entry{"content", applyContent})
	t.Register(ts.ServiceAvailabilityDescTagID, Entry{"service availability", nil})
	t.Register(ts.PriceTagDescTagID, Entry{"price tag", applyPriceTag(opts.PrimaryProductID)})
	return t
}

// Register adds or replaces the entry for tag. A nil Apply marks a tag that
// is recognised but has no effect.
func (t *Table) Register(tag uint8, e Entry) {
	t.entries[tag] = e
}

func (t *Table) Lookup(tag uint8) (Entry, bool) {
	e, ok := t.entries[tag]
	return e, ok
}

// Name returns the registered name of tag, or its hex value.
func (t *Table) Name(tag uint8) string {
	if e, ok := t.entries[tag]; ok {
		return e.Name
	}
	return fmt.Sprintf("0x%02x", tag)
}

func (t *Table) Decode(d ts.Descriptor, target Target) (Outcome, error) {
	e, ok := t.entries[d.Tag]
	if !ok || e.Apply == nil {
		return NoEffect, nil
	}
	outcome, err := e.Apply(d.Data, target)
	if err != nil {
		return Rejected, &DecodeError{Tag: d.Tag, Name: e.Name, Err: err}
	}
	return outcome, nil
}

func rawFallback(text TextDecoder, log logger.Logger) TextDecoder {
	if text == nil {
		return RawText
	}
	if log == nil {
		log = logger.NewNop()
	}
	return func(b []byte) (string, error) {
		s, err := text(b)
		if err != nil {
			log.Warn("SI text kept as raw bytes", logger.Int("length", len(b)), logger.Error(err))
			return RawText(b)
		}
		return s, nil
	}
}

func applyService(text TextDecoder) ApplyFunc {
	return func(data []byte, t Target) (Outcome, error) {
		info, err := DecodeService(data, text)
		if err != nil {
			return Rejected, err
		}
		t.SetNaming(info.Type, info.ProviderName, info.Name)
		return Applied, nil
	}
}

func applyLinkage(data []byte, t Target) (Outcome, error) {
	link, err := DecodeLinkage(data)
	if err != nil {
		return Rejected, err
	}
	if link.Type != ts.LinkageServiceReplacement {
		return NoEffect, nil
	}
	if !t.AddReplacement(link.Target()) {
		return NoEffect, nil
	}
	return Applied, nil
}

// applyContent replaces the genre text; earlier content descriptors are
// not merged in.
func applyContent(data []byte, t Target) (Outcome, error) {
	entries, err := DecodeContent(data)
	if err != nil {
		return Rejected, err
	}
	codes := make([]genre.Code, len(entries))
	for i, e := range entries {
		codes[i] = e.Code()
	}
	t.SetGenre(genre.Text(codes))
	return Applied, nil
}

// applyPriceTag zeroes the price before scanning products, so a payload
// without the primary product clears any earlier price. Every matching
// record overwrites the previous one.
func applyPriceTag(primary uint8) ApplyFunc {
	return func(data []byte, t Target) (Outcome, error) {
		pt, err := DecodePriceTag(data)
		if err != nil {
			return Rejected, err
		}
		t.SetPriceTag(0)
		for _, p := range pt.Products {
			if p.ID == primary {
				t.SetPriceTag(p.Price)
				t.SetNumberOfHDChannels(p.HDChannels)
			}
		}
		return Applied, nil
	}
}
