package domain

import "encoding/json"

// marshalPair encodes two values as a JSON array of length two. Several
// value types in this package (Price, PricePU) serialize as tuples rather
// than objects, matching the wire format the bus front-end and the
// document store expect.
func marshalPair(a, b any) ([]byte, error) {
	return json.Marshal([2]any{a, b})
}

func unmarshalPair(data []byte, a, b any) error {
	var raw [2]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw[0], a); err != nil {
		return err
	}
	return json.Unmarshal(raw[1], b)
}
