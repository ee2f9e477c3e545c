package service

// Snapshot is a detached, serialisable copy of a Record.
type Snapshot struct {
	Key                          string   `json:"key" yaml:"key"`
	OriginalNetworkID            uint16   `json:"original_network_id" yaml:"original_network_id"`
	TransportStreamID            uint16   `json:"transport_stream_id" yaml:"transport_stream_id"`
	ServiceID                    uint16   `json:"service_id" yaml:"service_id"`
	Name                         string   `json:"name" yaml:"name"`
	ProviderName                 string   `json:"provider_name" yaml:"provider_name"`
	Type                         uint8    `json:"service_type" yaml:"service_type"`
	TypeName                     string   `json:"service_type_name" yaml:"service_type_name"`
	Scrambled                    bool     `json:"scrambled" yaml:"scrambled"`
	EITScheduleAvailable         bool     `json:"eit_schedule" yaml:"eit_schedule"`
	EITPresentFollowingAvailable bool     `json:"eit_present_following" yaml:"eit_present_following"`
	RunningStatus                string   `json:"running_status" yaml:"running_status"`
	Genre                        string   `json:"genre" yaml:"genre"`
	PriceTag                     uint32   `json:"price_tag" yaml:"price_tag"`
	NumberOfHDChannels           uint32   `json:"hd_channels" yaml:"hd_channels"`
	Replacements                 []string `json:"replacements,omitempty" yaml:"replacements,omitempty"`
	Location                     string   `json:"location" yaml:"location"`
}

func (r *Record) Snapshot() Snapshot {
	s := Snapshot{
		Key:                          r.key.String(),
		OriginalNetworkID:            r.key.OriginalNetworkID,
		TransportStreamID:            r.key.TransportStreamID,
		ServiceID:                    r.key.ServiceID,
		Name:                         r.Name,
		ProviderName:                 r.ProviderName,
		Type:                         uint8(r.Type),
		TypeName:                     r.Type.String(),
		Scrambled:                    r.scrambled,
		EITScheduleAvailable:         r.EITScheduleAvailable,
		EITPresentFollowingAvailable: r.EITPresentFollowingAvailable,
		RunningStatus:                r.RunningStatus.String(),
		Genre:                        r.Genre,
		PriceTag:                     r.PriceTag,
		NumberOfHDChannels:           r.NumberOfHDChannels,
		Location:                     r.location.String(),
	}
	for _, k := range r.replacements {
		s.Replacements = append(s.Replacements, k.String())
	}
	return s
}

// Snapshot copies every record, ordered by key.
func (d *Directory) Snapshot() []Snapshot {
	records := d.Sorted()
	out := make([]Snapshot, 0, len(records))
	for _, r := range records {
		out = append(out, r.Snapshot())
	}
	return out
}
