package segment

// Word is one recognized token. Text carries the leading separator space
// (for every word except a segment's first) and any trailing punctuation,
// so concatenating the words of a segment reproduces its text exactly.
type Word struct {
	Text       string  `json:"Text"`
	Confidence float64 `json:"Confidence"`
	StartTime  float64 `json:"StartTime"`
	EndTime    float64 `json:"EndTime"`
}

// Entity is a detected entity occurrence within a segment's text.
type Entity struct {
	Type        string  `json:"Type"`
	Text        string  `json:"Text"`
	BeginOffset int     `json:"BeginOffset"`
	EndOffset   int     `json:"EndOffset"`
	Score       float64 `json:"Score"`
}

// SentimentScores is the four-way distribution returned by sentiment
// detection. The four values sum to 1.0 once set.
type SentimentScores struct {
	Positive float64 `json:"Positive"`
	Negative float64 `json:"Negative"`
	Neutral  float64 `json:"Neutral"`
	Mixed    float64 `json:"Mixed"`
}

// IssueRange is a begin/end character range of a detected issue.
type IssueRange struct {
	Begin int `json:"Begin"`
	End   int `json:"End"`
}

// UnsetSentiment is the sentinel score of a segment that has not been
// classified.
const UnsetSentiment = -1.0

// Segment is one conversational turn attributed to a single speaker.
type Segment struct {
	StartTime float64
	EndTime   float64
	Speaker   string
	Text      string
	Words     []Word

	SentimentScore float64
	IsPositive     bool
	IsNegative     bool
	Sentiments     *SentimentScores

	Entities []Entity

	// Analytics mode only.
	LoudnessScores []float64
	Interruption   bool
	IssuesDetected []IssueRange
}

// New returns an empty segment with sentiment unset.
func New() *Segment {
	return &Segment{SentimentScore: UnsetSentiment}
}

// appendWord adds a token to the segment and extends its text.
func (s *Segment) appendWord(w Word) {
	s.Text += w.Text
	s.Words = append(s.Words, w)
}
