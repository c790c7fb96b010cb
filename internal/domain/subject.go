package domain

// Subject identifies one of the image-editing models under evaluation.
// The catalog is fixed: votes for anything else are rejected.
type Subject string

const (
	SubjectFlux          Subject = "flux"
	SubjectGPT           Subject = "gpt"
	SubjectGPTMini       Subject = "gptMini"
	SubjectNanoBanana    Subject = "nanoBanana"
	SubjectNanoBananaPro Subject = "nanoBananaPro"
	SubjectQwen          Subject = "qwen"
	SubjectSeedream      Subject = "seedream"
)

// SubjectInfo carries display metadata for a subject.
type SubjectInfo struct {
	Key         Subject
	DisplayName string
}

var subjectCatalog = []SubjectInfo{
	{Key: SubjectNanoBananaPro, DisplayName: "Nano Banana Pro"},
	{Key: SubjectSeedream, DisplayName: "SeeDream 4"},
	{Key: SubjectGPT, DisplayName: "GPT-Image1"},
	{Key: SubjectGPTMini, DisplayName: "GPT-Image1-mini"},
	{Key: SubjectQwen, DisplayName: "Qwen Image Edit"},
	{Key: SubjectNanoBanana, DisplayName: "Nano Banana"},
	{Key: SubjectFlux, DisplayName: "Flux Kontext Pro"},
}

var subjectIndex = func() map[Subject]SubjectInfo {
	m := make(map[Subject]SubjectInfo, len(subjectCatalog))
	for _, info := range subjectCatalog {
		m[info.Key] = info
	}
	return m
}()

// Subjects returns the full subject catalog in display order.
func Subjects() []SubjectInfo {
	out := make([]SubjectInfo, len(subjectCatalog))
	copy(out, subjectCatalog)
	return out
}

// KnownSubject reports whether s belongs to the catalog.
func KnownSubject(s Subject) bool {
	_, ok := subjectIndex[s]
	return ok
}

// DisplayName returns the human-readable name for s, or the raw key if
// the subject is not in the catalog.
func (s Subject) DisplayName() string {
	if info, ok := subjectIndex[s]; ok {
		return info.DisplayName
	}
	return string(s)
}
