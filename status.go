package main

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// DFStatus is the designated-forwarder classification of a bridge port.
type DFStatus int

const (
	DF DFStatus = iota
	NonDF
)

// NonDFFlag is bit 0 of the bridge-port flag word reported by the dataplane.
const NonDFFlag uint64 = 1

// ClassifyFlags derives the DF classification from the bridge-port flag word.
// Only bit 0 is significant.
func ClassifyFlags(flags uint64) DFStatus {
	if flags&NonDFFlag != 0 {
		return NonDF
	}
	return DF
}

func (s DFStatus) String() string {
	if s == NonDF {
		return "non-df"
	}
	return "df"
}

func ParseDFStatus(s string) (DFStatus, error) {
	if s == "df" {
		return DF, nil
	}
	if s == "non-df" {
		return NonDF, nil
	}
	return DF, errors.New("invalid df status " + s)
}

func (s DFStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *DFStatus) UnmarshalJSON(data []byte) error {
	var value string
	err := json.Unmarshal(data, &value)
	if err != nil {
		return errors.Wrap(err, "could not unmarshal df status")
	}
	status, err := ParseDFStatus(value)
	if err != nil {
		return err
	}
	*s = status
	return nil
}
