package quorum

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Strategy reduces the successful peer responses, in peer-list order, to a
// single consensus value.
type Strategy interface {
	Resolve(responses []json.RawMessage) (json.RawMessage, error)
}

// Plurality picks the most frequent response. Responses are compared by
// their canonical JSON form, so key order and whitespace do not matter.
//
// Ties go to the group whose first member appears earliest in peer-list
// order, so reordering the peers can change the outcome of a tied vote.
type Plurality struct{}

// Resolve implements Strategy.
func (Plurality) Resolve(responses []json.RawMessage) (json.RawMessage, error) {
	groups := group(responses)
	if len(groups) == 0 {
		return nil, fmt.Errorf("%w: no valid responses", ErrNoQuorum)
	}

	best := 0
	for i := 1; i < len(groups); i++ {
		if groups[i].count > groups[best].count {
			best = i
		}
	}
	return groups[best].first, nil
}

// Threshold is Plurality with a minimum number of agreeing responses.
type Threshold struct {
	Min int
}

// Resolve implements Strategy.
func (s Threshold) Resolve(responses []json.RawMessage) (json.RawMessage, error) {
	winner, err := Plurality{}.Resolve(responses)
	if err != nil {
		return nil, err
	}
	agreed := Agreement(responses, winner)
	if agreed < s.Min {
		return nil, fmt.Errorf("%w: best answer has %d votes, need %d", ErrNoQuorum, agreed, s.Min)
	}
	return winner, nil
}

// Agreement counts responses canonically equal to value.
func Agreement(responses []json.RawMessage, value json.RawMessage) int {
	want, err := Canonical(value)
	if err != nil {
		return 0
	}
	n := 0
	for _, r := range responses {
		c, err := Canonical(r)
		if err == nil && bytes.Equal(c, want) {
			n++
		}
	}
	return n
}

type responseGroup struct {
	key   string
	first json.RawMessage
	count int
}

// group buckets responses by canonical form in order of first appearance.
// Responses that are not valid JSON are dropped.
func group(responses []json.RawMessage) []responseGroup {
	var groups []responseGroup
	index := make(map[string]int)
	for _, r := range responses {
		c, err := Canonical(r)
		if err != nil {
			continue
		}
		key := string(c)
		if i, ok := index[key]; ok {
			groups[i].count++
			continue
		}
		index[key] = len(groups)
		groups = append(groups, responseGroup{key: key, first: r, count: 1})
	}
	return groups
}

// Canonical re-encodes a JSON value with object keys sorted and
// insignificant whitespace removed. Numbers keep their literal text.
func Canonical(raw json.RawMessage) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after JSON value")
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
