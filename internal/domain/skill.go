package domain

import "strings"

// SkillTag identifies a reading-comprehension skill. Well-known tags carry
// curated display names and practice guidance; anything else round-trips as a
// custom tag so model-invented labels are never lost.
type SkillTag struct {
	raw     string
	known   bool
	canon   string
	display string
}

// Well-known skill tags.
var (
	SkillVocabulary = knownSkill("vocabulary", "Vocabulary Understanding")
	SkillDetail     = knownSkill("detail", "Detail Comprehension")
	SkillInference  = knownSkill("inference", "Inferential Reasoning")
	SkillMainIdea   = knownSkill("main-idea", "Main Idea Identification")
	SkillStructure  = knownSkill("structure", "Text Structure Analysis")
	SkillSequencing = knownSkill("sequencing", "Sequencing and Ordering")
)

var knownSkills = map[string]SkillTag{}

func knownSkill(canon, display string) SkillTag {
	t := SkillTag{raw: canon, known: true, canon: canon, display: display}
	knownSkills[canon] = t
	return t
}

// aliases maps external spellings onto canonical tags.
var skillAliases = map[string]string{
	"vocab":                    "vocabulary",
	"vocabulary understanding": "vocabulary",
	"詞彙理解":                     "vocabulary",
	"detail comprehension":     "detail",
	"細節理解":                     "detail",
	"inferential reasoning":    "inference",
	"推理判斷":                     "inference",
	"main idea":                "main-idea",
	"main_idea":                "main-idea",
	"主旨大意":                     "main-idea",
	"text structure":           "structure",
	"篇章結構":                     "structure",
	"sequencing and ordering":  "sequencing",
	"時序排列":                     "sequencing",
}

// ParseSkillTag resolves a label to a well-known tag when possible; otherwise
// it returns a custom tag preserving the original string.
func ParseSkillTag(label string) SkillTag {
	s := strings.TrimSpace(label)
	key := strings.ToLower(s)
	if canon, ok := skillAliases[key]; ok {
		key = canon
	}
	if t, ok := knownSkills[key]; ok {
		return t
	}
	if s == "" {
		s = "general"
	}
	return SkillTag{raw: s}
}

// Known reports whether the tag is one of the curated skills.
func (t SkillTag) Known() bool { return t.known }

// Canon returns the canonical identifier for known tags and the raw label
// otherwise.
func (t SkillTag) Canon() string {
	if t.known {
		return t.canon
	}
	return t.raw
}

// DisplayName returns the human-readable name used in reports.
func (t SkillTag) DisplayName() string {
	if t.known {
		return t.display
	}
	return t.raw
}

func (t SkillTag) String() string { return t.Canon() }

// MarshalText emits the canonical identifier.
func (t SkillTag) MarshalText() ([]byte, error) { return []byte(t.Canon()), nil }

// UnmarshalText parses through the alias table.
func (t *SkillTag) UnmarshalText(b []byte) error {
	*t = ParseSkillTag(string(b))
	return nil
}
