package model

// InstrumentKind selects the upstream dataset an instrument is read from
type InstrumentKind string

const (
	KindIndex InstrumentKind = "index"
	KindFund  InstrumentKind = "fund"
)

// Instrument describes one tracked index or fund
type Instrument struct {
	Key        string         `json:"key"`
	Name       string         `json:"name"`
	SourceID   string         `json:"ts_code"`
	Kind       InstrumentKind `json:"kind"`
	LaunchDate string         `json:"launch_date,omitempty"`
}

// InstrumentInfo is the metadata entry returned alongside a comparison
type InstrumentInfo struct {
	Key    string `json:"key"`
	Name   string `json:"name"`
	TSCode string `json:"ts_code"`
}

// Info returns the instrument's public metadata
func (i Instrument) Info() InstrumentInfo {
	return InstrumentInfo{Key: i.Key, Name: i.Name, TSCode: i.SourceID}
}

// Keys returns the instrument keys in list order
func Keys(instruments []Instrument) []string {
	keys := make([]string, len(instruments))
	for i, inst := range instruments {
		keys[i] = inst.Key
	}
	return keys
}
