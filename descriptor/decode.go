// Package descriptor decodes the SDT service loop descriptors that carry
// naming, replacement, genre and price information.
package descriptor

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/zlm2012/sdtscan/genre"
	"github.com/zlm2012/sdtscan/service"
	"github.com/zlm2012/sdtscan/ts"
)

var ErrTruncated = errors.New("payload truncated")

// TextDecoder turns an SI text field into a string.
type TextDecoder func([]byte) (string, error)

// RawText copies the bytes unchanged.
func RawText(b []byte) (string, error) {
	return string(b), nil
}

type ServiceInfo struct {
	Type         ts.ServiceType
	ProviderName string
	Name         string
}

// DecodeService reads service_type, then the length prefixed provider and
// service names.
func DecodeService(data []byte, text TextDecoder) (ServiceInfo, error) {
	if text == nil {
		text = RawText
	}
	if len(data) < 2 {
		return ServiceInfo{}, fmt.Errorf("%w: %d bytes", ErrTruncated, len(data))
	}
	info := ServiceInfo{Type: ts.ServiceType(data[0])}
	providerLen := int(data[1])
	if 2+providerLen+1 > len(data) {
		return ServiceInfo{}, fmt.Errorf("%w: provider name length %d", ErrTruncated, providerLen)
	}
	rest := data[2+providerLen:]
	nameLen := int(rest[0])
	if 1+nameLen > len(rest) {
		return ServiceInfo{}, fmt.Errorf("%w: service name length %d", ErrTruncated, nameLen)
	}

	var err error
	if info.ProviderName, err = text(data[2 : 2+providerLen]); err != nil {
		return ServiceInfo{}, fmt.Errorf("provider name: %w", err)
	}
	if info.Name, err = text(rest[1 : 1+nameLen]); err != nil {
		return ServiceInfo{}, fmt.Errorf("service name: %w", err)
	}
	return info, nil
}

type Linkage struct {
	TransportStreamID uint16
	OriginalNetworkID uint16
	ServiceID         uint16
	Type              ts.LinkageType
	PrivateData       []byte
}

func (l Linkage) Target() service.Key {
	return service.MakeKey(l.OriginalNetworkID, l.TransportStreamID, l.ServiceID)
}

func DecodeLinkage(data []byte) (Linkage, error) {
	if len(data) < 7 {
		return Linkage{}, fmt.Errorf("%w: %d bytes", ErrTruncated, len(data))
	}
	return Linkage{
		TransportStreamID: binary.BigEndian.Uint16(data[0:2]),
		OriginalNetworkID: binary.BigEndian.Uint16(data[2:4]),
		ServiceID:         binary.BigEndian.Uint16(data[4:6]),
		Type:              ts.LinkageType(data[6]),
		PrivateData:       data[7:],
	}, nil
}

type ContentEntry struct {
	Level1   uint8
	Level2   uint8
	UserByte uint8
}

func (e ContentEntry) Code() genre.Code {
	return genre.CodeOf(e.Level1, e.Level2)
}

// DecodeContent reads the two byte content entries.
func DecodeContent(data []byte) ([]ContentEntry, error) {
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("%w: odd content length %d", ErrTruncated, len(data))
	}
	entries := make([]ContentEntry, len(data)/2)
	for i := range entries {
		entries[i] = ContentEntry{
			Level1:   data[2*i] >> 4,
			Level2:   data[2*i] & 0x0f,
			UserByte: data[2*i+1],
		}
	}
	return entries, nil
}

const productRecordLength = 7

type Product struct {
	ID         uint8
	HDChannels uint32
	Price      uint32
}

type PriceTag struct {
	Products []Product
}

// DecodePriceTag reads the 0x87 private payload: a product count followed
// by 7 byte records of product id, 24 bit HD channel count and 24 bit
// package price, all big endian.
func DecodePriceTag(data []byte) (PriceTag, error) {
	if len(data) < 1 {
		return PriceTag{}, fmt.Errorf("%w: missing product count", ErrTruncated)
	}
	count := int(data[0])
	if need := 1 + productRecordLength*count; need > len(data) {
		return PriceTag{}, fmt.Errorf("%w: %d products need %d bytes, have %d", ErrTruncated, count, need, len(data))
	}
	pt := PriceTag{Products: make([]Product, count)}
	for i := range pt.Products {
		rec := data[productRecordLength*i+1:]
		pt.Products[i] = Product{
			ID:         rec[0],
			HDChannels: uint24(rec[1:4]),
			Price:      uint24(rec[4:7]),
		}
	}
	return pt, nil
}

func uint24(b []byte) uint32 {
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}
