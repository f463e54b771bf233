package persistence

import "time"

type (

	//Quote is one highlight extracted from a transcript
	Quote struct {
		Text      string   `json:"text"`
		Timestamp string   `json:"timestamp,omitempty"`
		Speaker   string   `json:"speaker,omitempty"`
		Themes    []string `json:"themes"`
		Impact    int      `json:"impact"`
	}

	//Summary is a transcript without text, used in list views
	Summary struct {
		ID       string    `json:"id"`
		Title    string    `json:"title"`
		Speaker  string    `json:"speaker"`
		Tags     []string  `json:"tags"`
		Date     string    `json:"date"`
		Duration string    `json:"duration,omitempty"`
		Status   string    `json:"status"`
		Quotes   []Quote   `json:"quotes"`
		Created  time.Time `json:"createdAt"`
	}

	//Transcript is the stored result of one media transcription
	Transcript struct {
		Summary
		Text      string `json:"transcriptText"`
		MediaPath string `json:"-"`
		Version   int64  `json:"-"`
	}
)

// Copy makes a deep copy
func (t *Transcript) Copy() *Transcript {
	if t == nil {
		return nil
	}
	res := *t
	res.Summary = *t.Summary.Copy()
	return &res
}

// Copy makes a deep copy
func (s *Summary) Copy() *Summary {
	res := *s
	res.Tags = append([]string{}, s.Tags...)
	res.Quotes = CopyQuotes(s.Quotes)
	return &res
}

// CopyQuotes makes a deep copy of quotes, never returns nil
func CopyQuotes(q []Quote) []Quote {
	res := make([]Quote, 0, len(q))
	for _, v := range q {
		v.Themes = append([]string{}, v.Themes...)
		res = append(res, v)
	}
	return res
}
