package models

// Utterance is a single timed span of spoken text inside a speaker segment.
type Utterance struct {
	ID               string  `json:"id" validate:"required"`
	Text             string  `json:"text"`
	StartTimestamp   float64 `json:"start_timestamp" validate:"gte=0"`
	EndTimestamp     float64 `json:"end_timestamp" validate:"gtfield=StartTimestamp"`
	SpeakerSegmentID string  `json:"speaker_segment_id"`
}

// Duration returns the length of the utterance in seconds.
func (u Utterance) Duration() float64 {
	return u.EndTimestamp - u.StartTimestamp
}

// SpeakerSegment is a contiguous run of utterances attributed to one speaker tag.
type SpeakerSegment struct {
	ID             string      `json:"id" validate:"required"`
	MeetingID      string      `json:"meeting_id"`
	SpeakerTagID   *string     `json:"speaker_tag_id,omitempty"` // Nullable foreign key
	StartTimestamp float64     `json:"start_timestamp"`
	EndTimestamp   float64     `json:"end_timestamp"`
	Utterances     []Utterance `json:"utterances" validate:"dive"`
}

// SpeakerTag labels the voice of a segment. It may be linked to a known person.
type SpeakerTag struct {
	ID       string  `json:"id" validate:"required"`
	Label    string  `json:"label"`
	PersonID *string `json:"person_id,omitempty"` // Nullable foreign key
}

// Person is a known council member or official.
type Person struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name"`
}

// Transcript is the ordered list of speaker segments of one meeting,
// together with the tags and people the segments refer to.
type Transcript struct {
	MeetingID   string           `json:"meeting_id"`
	Segments    []SpeakerSegment `json:"segments" validate:"dive"`
	SpeakerTags []SpeakerTag     `json:"speaker_tags,omitempty" validate:"dive"`
	People      []Person         `json:"people,omitempty" validate:"dive"`
}

// UtteranceCount returns the number of utterances across all segments.
func (t *Transcript) UtteranceCount() int {
	n := 0
	for _, s := range t.Segments {
		n += len(s.Utterances)
	}
	return n
}
