package firecrawl

import "encoding/json"

// flexString decodes metadata fields that Firecrawl emits either as a string
// or as an array of strings. Arrays yield their first non-empty element and
// any other shape decodes to the empty string.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*f = flexString(single)
		return nil
	}
	var many []string
	*f = ""
	if err := json.Unmarshal(data, &many); err != nil {
		return nil
	}
	for _, v := range many {
		if v != "" {
			*f = flexString(v)
			break
		}
	}
	return nil
}
