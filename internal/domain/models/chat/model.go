package chat

// ModelIdentity names one of the fixed model slots a conversation can
// target. The set is closed: the fan-out target list, the capability
// registry and the winner-selection column all range over exactly these
// three values.
type ModelIdentity string

const (
	ModelGemini  ModelIdentity = "gemini"
	ModelLlama   ModelIdentity = "llama"
	ModelMistral ModelIdentity = "mistral"
)

// AllModels returns the multi-agent fan-out target set in canonical
// order. Aggregate entries are presented in this order regardless of
// which backend answers first.
func AllModels() []ModelIdentity {
	return []ModelIdentity{ModelGemini, ModelLlama, ModelMistral}
}

// Valid reports whether m is a known model slot.
func (m ModelIdentity) Valid() bool {
	switch m {
	case ModelGemini, ModelLlama, ModelMistral:
		return true
	}
	return false
}

// Mode selects between talking to one model and fanning out to all of
// them.
type Mode string

const (
	ModeSingle Mode = "single"
	ModeMulti  Mode = "multi"
)

// Valid reports whether md is a known chat mode.
func (md Mode) Valid() bool {
	return md == ModeSingle || md == ModeMulti
}
