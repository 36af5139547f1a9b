package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

var (
	jsonFence = regexp.MustCompile("(?i)```json")
	fenceEnd  = "```"
)

var errNotObject = errors.New("response is not a JSON object")

// Extractor pulls a JSON object out of a model response.
//
// Content that is already a bare object is taken as is. When the content has
// a ```json fence, the first JSON value after the fence is decoded and
// whatever follows it is ignored, so fences inside string values survive. If
// that fails, the body up to the closing fence (or the end of the text) is
// parsed. Anything that does not decode to an object degrades, keeping the
// original content verbatim.
type Extractor struct {
	// Repair runs jsonrepair over unparsable bodies before giving up.
	Repair bool
}

// Extract never fails; it returns either an object or a degraded payload.
func (e Extractor) Extract(content string) Payload {
	if object, err := decodeObject(strings.TrimSpace(content)); err == nil {
		return Ok(object)
	}
	if object, ok := decodeAfterFence(content); ok {
		return Ok(object)
	}

	body := fencedBody(content)

	object, err := decodeObject(body)
	if err == nil {
		return Ok(object)
	}

	if e.Repair && body != "" {
		if repaired, rerr := jsonrepair.JSONRepair(body); rerr == nil {
			if object, rerr := decodeObject(repaired); rerr == nil {
				return Ok(object)
			}
		}
	}

	return Degrade(fmt.Sprintf("failed to parse JSON response: %v", err), content)
}

// decodeAfterFence decodes the first JSON value following a ```json fence.
func decodeAfterFence(content string) (map[string]any, bool) {
	loc := jsonFence.FindStringIndex(content)
	if loc == nil {
		return nil, false
	}

	var object map[string]any
	if err := json.NewDecoder(strings.NewReader(content[loc[1]:])).Decode(&object); err != nil || object == nil {
		return nil, false
	}
	return object, true
}

// fencedBody returns the first ```json block's body, or the whole content trimmed.
func fencedBody(content string) string {
	loc := jsonFence.FindStringIndex(content)
	if loc == nil {
		return strings.TrimSpace(content)
	}

	rest := content[loc[1]:]
	if end := strings.Index(rest, fenceEnd); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

func decodeObject(body string) (map[string]any, error) {
	if body == "" {
		return nil, errors.New("empty response")
	}

	var value any
	if err := json.Unmarshal([]byte(body), &value); err != nil {
		return nil, err
	}

	object, ok := value.(map[string]any)
	if !ok {
		return nil, errNotObject
	}
	return object, nil
}
