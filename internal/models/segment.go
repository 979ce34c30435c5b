package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Segment is the customer category assigned from an RFM score.
type Segment int

const (
	Champions Segment = iota
	LoyalCustomers
	BigSpenders
	Hibernating
	Others
)

// AllSegments lists every segment in classification priority order.
var AllSegments = []Segment{Champions, LoyalCustomers, BigSpenders, Hibernating, Others}

var segmentNames = [...]string{
	Champions:      "Champions",
	LoyalCustomers: "Loyal Customers",
	BigSpenders:    "Big Spenders",
	Hibernating:    "Hibernating",
	Others:         "Others",
}

func (s Segment) String() string {
	if s < Champions || s > Others {
		return fmt.Sprintf("Segment(%d)", int(s))
	}
	return segmentNames[s]
}

func (s Segment) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Segment) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseSegment(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSegment resolves a display name back to its Segment.
func ParseSegment(name string) (Segment, error) {
	for _, s := range AllSegments {
		if strings.EqualFold(segmentNames[s], strings.TrimSpace(name)) {
			return s, nil
		}
	}
	return Others, fmt.Errorf("unknown segment %q", name)
}

// ClassifySegment maps a three digit RFM score to a segment. Rules are
// evaluated in order and the first match wins.
func ClassifySegment(score string) Segment {
	switch {
	case score == "555":
		return Champions
	case strings.HasPrefix(score, "5"):
		return LoyalCustomers
	case strings.HasSuffix(score, "5"):
		return BigSpenders
	case strings.HasPrefix(score, "1"):
		return Hibernating
	default:
		return Others
	}
}
