package sdt

import (
	"github.com/zlm2012/sdtscan/descriptor"
	"github.com/zlm2012/sdtscan/logger"
	"github.com/zlm2012/sdtscan/service"
	"github.com/zlm2012/sdtscan/ts"
)

func (c *Client) dispatch(rec *service.Record, tag uint8, data []byte) {
	// a 0x87 descriptor zeroes the price itself, and only once it decodes
	if c.resetPriceEveryDescriptor && tag != ts.PriceTagDescTagID {
		rec.SetPriceTag(0)
	}
	outcome, err := c.table.Decode(ts.Descriptor{Tag: tag, Data: data}, rec)
	c.stats.Descriptors[outcome]++
	if err != nil {
		c.log.Warn("descriptor skipped",
			logger.Stringer("service", rec.Key()),
			logger.String("descriptor", c.table.Name(tag)),
			logger.Error(err))
		return
	}
	if outcome != descriptor.Applied {
		return
	}
	switch tag {
	case ts.ServiceDescTagID:
		c.log.Info("SDT service named",
			logger.String("name", rec.Name),
			logger.String("provider", rec.ProviderName),
			logger.Int("service_type", int(rec.Type)))
	case ts.PriceTagDescTagID:
		c.log.Debug("SDT price tag",
			logger.Stringer("service", rec.Key()),
			logger.Uint32("price_tag", rec.PriceTag),
			logger.Uint32("hd_channels", rec.NumberOfHDChannels))
	}
}
