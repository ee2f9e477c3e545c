package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/zlm2012/sdtscan/config"
	"github.com/zlm2012/sdtscan/descriptor"
	"github.com/zlm2012/sdtscan/dvbtext"
	"github.com/zlm2012/sdtscan/logger"
	"github.com/zlm2012/sdtscan/sdt"
	"github.com/zlm2012/sdtscan/service"
	"github.com/zlm2012/sdtscan/ts"
)

type scanResult struct {
	Session           string             `json:"session" yaml:"session"`
	OriginalNetworkID uint16             `json:"original_network_id" yaml:"original_network_id"`
	TransportStreamID uint16             `json:"transport_stream_id" yaml:"transport_stream_id"`
	SDTActualVersion  uint8              `json:"sdt_actual_version" yaml:"sdt_actual_version"`
	Sections          int                `json:"sections" yaml:"sections"`
	SkippedSections   int                `json:"skipped_sections" yaml:"skipped_sections"`
	Services          []service.Snapshot `json:"services" yaml:"services"`
	ObservedTags      []int              `json:"observed_tags,omitempty" yaml:"observed_tags,omitempty"`
}

// logHooks reports table events at debug level.
type logHooks struct {
	log logger.Logger
}

func (h logHooks) TableFound(s *sdt.Section) {
	h.log.Debug("SDT found",
		logger.String("table", s.Variant.String()),
		logger.Uint8("version", s.Version),
		logger.Uint16("service_id", s.ServiceID))
}

func (h logHooks) SectionCompleted() {
	h.log.Debug("SDT section completed")
}

func newSDTClient(cfg *config.Config, log logger.Logger) *sdt.Client {
	text := descriptor.TextDecoder(dvbtext.DecodeString)
	if cfg.TextDecoding == config.TextRaw {
		text = descriptor.RawText
	}
	table := descriptor.NewTable(descriptor.Options{PrimaryProductID: cfg.PrimaryProductID, Text: text, Log: log})
	client := sdt.NewClient(
		sdt.WithLogger(log),
		sdt.WithHooks(logHooks{log}),
		sdt.WithTable(table),
		sdt.WithRecordTags(cfg.RecordTags),
		sdt.WithPriceResetOnEveryDescriptor(cfg.PriceReset == config.PriceResetOnEveryDescriptor),
	)
	client.SetFactory(&service.DefaultFactory{})
	return client
}

// scanner feeds reassembled SDT sections into one client.
type scanner struct {
	cfg         *config.Config
	log         logger.Logger
	client      *sdt.Client
	transponder *sdt.TransponderInfo
	sections    int
	skipped     int
}

func newScanner(cfg *config.Config, log logger.Logger) *scanner {
	s := &scanner{cfg: cfg, log: log, client: newSDTClient(cfg, log), transponder: &sdt.TransponderInfo{}}
	s.client.SetCurrentTransponder(s.transponder)
	return s
}

func (s *scanner) feedFrame(frame *ts.SDTFrame) error {
	s.sections++
	sections := sdt.SectionsFromFrame(frame)
	for i := range sections {
		if err := s.client.OnSection(&sections[i]); err != nil {
			return err
		}
	}
	s.client.OnSectionCompleted()
	return nil
}

// feedSection parses one raw section, table_id through CRC_32.
func (s *scanner) feedSection(raw []byte) error {
	frame, err := ts.ParseSDTSection(raw, s.cfg.VerifyCRC)
	if err != nil {
		return err
	}
	return s.feedFrame(frame)
}

func (s *scanner) feedStream(r io.Reader) error {
	dec := ts.NewDecoder(r, ts.WithLogger(s.log), ts.WithCRCCheck(s.cfg.VerifyCRC))
	for {
		frame, err := dec.ReadNextSDTFrame()
		switch {
		case errors.Is(err, io.EOF):
			return nil
		case errors.Is(err, ts.ErrCRCMismatch), errors.Is(err, ts.ErrIllegalSection):
			s.skipped++
			s.log.Warn("SDT section dropped", logger.Error(err))
			continue
		case err != nil:
			return fmt.Errorf("read transport stream: %w", err)
		}
		if err := s.feedFrame(frame); err != nil {
			return err
		}
	}
}

func (s *scanner) result() *scanResult {
	var tags []int
	for _, tag := range s.client.ObservedTags() {
		tags = append(tags, int(tag))
	}
	return &scanResult{
		Session:           s.client.SessionID().String(),
		OriginalNetworkID: s.transponder.OriginalNetworkID,
		TransportStreamID: s.transponder.TransportStreamID,
		SDTActualVersion:  s.client.VersionNumber(),
		Sections:          s.sections,
		SkippedSections:   s.skipped,
		Services:          s.client.Directory().Snapshot(),
		ObservedTags:      tags,
	}
}
