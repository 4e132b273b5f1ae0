package transcript

import (
	"strconv"

	"github.com/cespare/xxhash/v2"

	"videothingy/council-highlights/models"
)

// UnknownSpeaker is the display name used when a segment has no usable tag.
const UnknownSpeaker = "Unknown"

// Index is a read-only lookup structure over one transcript snapshot.
// Build a new Index whenever the transcript changes.
type Index struct {
	flat       []models.Utterance
	flatPos    map[string]int
	segments   map[string]*models.SpeakerSegment
	segPos     map[string]int
	tags       map[string]models.SpeakerTag
	people     map[string]models.Person
	version    uint64
}

// NewIndex builds an Index over t. A nil transcript yields an empty index.
func NewIndex(t *models.Transcript) *Index {
	if t == nil {
		t = &models.Transcript{}
	}
	idx := &Index{
		flat:       Flatten(t),
		segments:   make(map[string]*models.SpeakerSegment, len(t.Segments)),
		segPos:     make(map[string]int),
		tags:       make(map[string]models.SpeakerTag, len(t.SpeakerTags)),
		people:     make(map[string]models.Person, len(t.People)),
	}

	idx.flatPos = make(map[string]int, len(idx.flat))
	for i, u := range idx.flat {
		if _, dup := idx.flatPos[u.ID]; !dup {
			idx.flatPos[u.ID] = i
		}
	}
	for i := range t.Segments {
		seg := &t.Segments[i]
		idx.segments[seg.ID] = seg
		for pos, u := range seg.Utterances {
			idx.segPos[u.ID] = pos
		}
	}
	for _, tag := range t.SpeakerTags {
		idx.tags[tag.ID] = tag
	}
	for _, p := range t.People {
		idx.people[p.ID] = p
	}
	idx.version = contentHash(t)
	return idx
}

// contentHash covers everything a derived view reads: segment structure,
// utterance text and timing, and speaker resolution.
func contentHash(t *models.Transcript) uint64 {
	d := xxhash.New()
	buf := make([]byte, 0, 32)
	field := func(s string) {
		_, _ = d.WriteString(s)
		_, _ = d.WriteString("\x00")
	}
	optional := func(s *string) {
		if s == nil {
			field("\x02")
			return
		}
		field(*s)
	}
	for _, seg := range t.Segments {
		field(seg.ID)
		optional(seg.SpeakerTagID)
		for _, u := range seg.Utterances {
			field(u.ID)
			field(u.SpeakerSegmentID)
			field(u.Text)
			buf = strconv.AppendFloat(buf[:0], u.StartTimestamp, 'g', -1, 64)
			buf = append(buf, '-')
			buf = strconv.AppendFloat(buf, u.EndTimestamp, 'g', -1, 64)
			_, _ = d.Write(buf)
		}
		_, _ = d.WriteString("\x01")
	}
	for _, tag := range t.SpeakerTags {
		field(tag.ID)
		field(tag.Label)
		optional(tag.PersonID)
	}
	_, _ = d.WriteString("\x01")
	for _, p := range t.People {
		field(p.ID)
		field(p.Name)
	}
	return d.Sum64()
}

// Version is a content hash of the transcript, including utterance text and
// speaker names.
func (idx *Index) Version() uint64 {
	return idx.version
}

// Utterances returns the flattened, chronologically ordered utterance list.
// Callers must not modify it.
func (idx *Index) Utterances() []models.Utterance {
	return idx.flat
}

// Len returns the number of utterances.
func (idx *Index) Len() int {
	return len(idx.flat)
}

// Utterance looks up an utterance by id.
func (idx *Index) Utterance(id string) (models.Utterance, bool) {
	pos, ok := idx.flatPos[id]
	if !ok {
		return models.Utterance{}, false
	}
	return idx.flat[pos], true
}

// Position returns the index of the utterance in the flattened list.
func (idx *Index) Position(id string) (int, bool) {
	pos, ok := idx.flatPos[id]
	return pos, ok
}

// Has reports whether the utterance exists in the transcript.
func (idx *Index) Has(id string) bool {
	_, ok := idx.flatPos[id]
	return ok
}

// GetSpeakerSegmentByID looks up a segment by id.
func (idx *Index) GetSpeakerSegmentByID(id string) (*models.SpeakerSegment, bool) {
	seg, ok := idx.segments[id]
	return seg, ok
}

// PositionInSegment returns the index of the utterance within its own segment.
func (idx *Index) PositionInSegment(utteranceID string) (int, bool) {
	pos, ok := idx.segPos[utteranceID]
	return pos, ok
}

// SpeakerName resolves the display name of a segment's speaker: the linked
// person's name, else the tag label, else UnknownSpeaker.
func (idx *Index) SpeakerName(segmentID string) string {
	seg, ok := idx.segments[segmentID]
	if !ok || seg.SpeakerTagID == nil {
		return UnknownSpeaker
	}
	tag, ok := idx.tags[*seg.SpeakerTagID]
	if !ok {
		return UnknownSpeaker
	}
	if tag.PersonID != nil {
		if p, ok := idx.people[*tag.PersonID]; ok && p.Name != "" {
			return p.Name
		}
	}
	if tag.Label != "" {
		return tag.Label
	}
	return UnknownSpeaker
}
