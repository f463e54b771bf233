package quotes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/airenas/rhemaflow/internal/pkg/persistence"
	"github.com/airenas/rhemaflow/internal/pkg/utils"
)

var (
	fenceStart = regexp.MustCompile("(?i)^```[a-z0-9_-]*\\s*")
	fenceEnd   = regexp.MustCompile("\\s*```$")
	timeRegexp = regexp.MustCompile(`^\d{1,3}:\d{2}(:\d{2})?$`)
)

// StripFences removes a leading and trailing markdown code fence
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	s = fenceStart.ReplaceAllString(s, "")
	s = fenceEnd.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// Parse converts model output into quotes, any deviation fails the whole list
func Parse(raw string) ([]persistence.Quote, error) {
	s := StripFences(raw)
	var res []persistence.Quote
	d := json.NewDecoder(strings.NewReader(s))
	d.DisallowUnknownFields()
	if err := d.Decode(&res); err != nil {
		return nil, utils.NewParseError(err, raw)
	}
	if err := expectEOF(d); err != nil {
		return nil, utils.NewParseError(err, raw)
	}
	for i := range res {
		res[i].Timestamp = fixTimestamp(res[i].Timestamp)
		if err := validate(res[i]); err != nil {
			return nil, utils.NewParseError(fmt.Errorf("quote %d: %w", i+1, err), raw)
		}
	}
	return persistence.CopyQuotes(res), nil
}

func expectEOF(d *json.Decoder) error {
	var extra json.RawMessage
	if err := d.Decode(&extra); err != io.EOF {
		if err == nil {
			return fmt.Errorf("unexpected data after array: %s", string(bytes.TrimSpace(extra)))
		}
		return err
	}
	return nil
}

func validate(q persistence.Quote) error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("empty text")
	}
	if q.Impact < 1 || q.Impact > 5 {
		return fmt.Errorf("impact %d not in [1, 5]", q.Impact)
	}
	return nil
}

// fixTimestamp drops surrounding brackets, an unrecognized value becomes empty
func fixTimestamp(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(s, "["), "]"))
	if !timeRegexp.MatchString(s) {
		return ""
	}
	return s
}
