// Package sdt applies SDT sections to a service directory.
package sdt

import (
	"crypto/rand"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/zlm2012/sdtscan/descriptor"
	"github.com/zlm2012/sdtscan/logger"
	"github.com/zlm2012/sdtscan/service"
)

// ErrNoDirectory is returned by OnSection before a factory has been set.
var ErrNoDirectory = errors.New("sdt: no service directory; call SetFactory first")

// Transponder receives the identity of the transport stream being scanned
// when an actual SDT is seen.
type Transponder interface {
	SetOriginalNetworkID(id uint16)
	SetTransportStreamID(id uint16)
	SetSDTActualVersion(v uint8)
}

type TransponderInfo struct {
	OriginalNetworkID uint16
	TransportStreamID uint16
	SDTActualVersion  uint8
}

func (t *TransponderInfo) SetOriginalNetworkID(id uint16) { t.OriginalNetworkID = id }
func (t *TransponderInfo) SetTransportStreamID(id uint16) { t.TransportStreamID = id }
func (t *TransponderInfo) SetSDTActualVersion(v uint8)    { t.SDTActualVersion = v }

// Hooks are diagnostic callbacks. They run synchronously on the caller's
// goroutine.
type Hooks interface {
	TableFound(s *Section)
	SectionCompleted()
}

type NopHooks struct{}

func (NopHooks) TableFound(*Section) {}
func (NopHooks) SectionCompleted()   {}

// Stats counts what the client has processed.
type Stats struct {
	Sections        int
	ServicesCreated int
	Descriptors     map[descriptor.Outcome]int
}

type Option func(*Client)

func WithLogger(l logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

func WithHooks(h Hooks) Option {
	return func(c *Client) { c.hooks = h }
}

func WithTable(t *descriptor.Table) Option {
	return func(c *Client) { c.table = t }
}

// WithRecordTags enables accumulation of every descriptor tag seen.
func WithRecordTags(on bool) Option {
	return func(c *Client) { c.recordTags = on }
}

// WithPriceResetOnEveryDescriptor zeroes the price tag before dispatching
// each descriptor of any other tag. A rejected price descriptor still
// leaves the record untouched.
func WithPriceResetOnEveryDescriptor(on bool) Option {
	return func(c *Client) { c.resetPriceEveryDescriptor = on }
}

// Client is the per-scan SDT handler. It keeps no locks: callers must not
// invoke OnSection concurrently.
type Client struct {
	log   logger.Logger
	hooks Hooks
	table *descriptor.Table

	factory     service.Factory
	directory   *service.Directory
	transponder Transponder

	versionNumber     uint8
	originalNetworkID uint16
	transportStreamID uint16

	recordTags                bool
	observedTags              []uint8
	resetPriceEveryDescriptor bool

	sessionID ulid.ULID
	stats     Stats
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		log:           logger.NewNop(),
		hooks:         NopHooks{},
		versionNumber: 0xff,
		sessionID:     ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(rand.Reader, 0)),
		stats:         Stats{Descriptors: make(map[descriptor.Outcome]int)},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.table == nil {
		c.table = descriptor.NewTable(descriptor.Options{PrimaryProductID: 1})
	}
	c.log = c.log.With(logger.String("session", c.sessionID.String()))
	return c
}

// SetFactory binds f and replaces the directory with a fresh empty one.
// A nil factory is ignored.
func (c *Client) SetFactory(f service.Factory) {
	if f == nil {
		return
	}
	c.factory = f
	c.directory = f.NewDirectory()
}

func (c *Client) Factory() service.Factory { return c.factory }

func (c *Client) Directory() *service.Directory { return c.directory }

func (c *Client) SetCurrentTransponder(t Transponder) { c.transponder = t }
func (c *Client) CurrentTransponder() Transponder     { return c.transponder }

func (c *Client) VersionNumber() uint8      { return c.versionNumber }
func (c *Client) OriginalNetworkID() uint16 { return c.originalNetworkID }
func (c *Client) TransportStreamID() uint16 { return c.transportStreamID }
func (c *Client) SetRecordTags(on bool)     { c.recordTags = on }
func (c *Client) RecordTags() bool          { return c.recordTags }
func (c *Client) SessionID() ulid.ULID      { return c.sessionID }

// ObservedTags returns every tag seen while recording was on, once per
// descriptor instance.
func (c *Client) ObservedTags() []uint8 {
	return append([]uint8(nil), c.observedTags...)
}

func (c *Client) Stats() Stats {
	s := c.stats
	s.Descriptors = make(map[descriptor.Outcome]int, len(c.stats.Descriptors))
	for k, v := range c.stats.Descriptors {
		s.Descriptors[k] = v
	}
	return s
}

// OnSection merges one service entry into the directory.
func (c *Client) OnSection(s *Section) error {
	if c.directory == nil {
		return ErrNoDirectory
	}
	c.hooks.TableFound(s)
	c.stats.Sections++

	if s.Variant == Actual {
		if c.transponder != nil {
			c.transponder.SetOriginalNetworkID(s.OriginalNetworkID)
			c.transponder.SetTransportStreamID(s.TransportStreamID)
			c.transponder.SetSDTActualVersion(s.Version)
		}
		c.versionNumber = s.Version
		c.originalNetworkID = s.OriginalNetworkID
		c.transportStreamID = s.TransportStreamID
	}

	key := service.MakeKey(s.OriginalNetworkID, s.TransportStreamID, s.ServiceID)
	rec, created := c.directory.LookupOrCreate(key)
	if created {
		c.stats.ServicesCreated++
	}
	if s.Variant == Actual {
		rec.AddLocation(service.FoundInSDTActual)
	} else {
		rec.AddLocation(service.FoundInSDTOther)
	}
	c.log.Info("SDT-"+s.Variant.String()+" service added",
		logger.Int("service_id", int(s.ServiceID)),
		logger.Int("tsid", int(s.TransportStreamID)),
		logger.Bool("new", created))

	rec.MarkScrambled(s.FreeCAMode)
	rec.EITScheduleAvailable = s.EITScheduleFlag
	rec.EITPresentFollowingAvailable = s.EITPresentFollowingFlag
	rec.RunningStatus = s.RunningStatus

	for _, tag := range s.TagList() {
		for _, d := range s.DescriptorsByTag(tag) {
			c.dispatch(rec, d.Tag, d.Data)
			if c.recordTags {
				c.observedTags = append(c.observedTags, tag)
			}
		}
	}
	return nil
}

// OnSectionCompleted signals that the caller finished a wire section.
func (c *Client) OnSectionCompleted() {
	c.hooks.SectionCompleted()
}
