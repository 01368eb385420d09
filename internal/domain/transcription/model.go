package transcription

// Supported speech-to-text models.
const (
	ModelWhisperTurbo     = "whisper-large-v3-turbo"
	ModelDistilWhisperEN  = "distil-whisper-large-v3-en"
	ModelWhisperLargeV3   = "whisper-large-v3"
	DefaultModel          = ModelWhisperLargeV3
	DefaultLanguage       = "id"
	defaultUploadFileName = "recording.m4a"
)

// ModelOption describes a selectable model for the settings screen.
type ModelOption struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// KnownModels is the closed set of selectable models.
var KnownModels = []ModelOption{
	{ID: ModelWhisperTurbo, Label: "Whisper Large V3 Turbo", Description: "Faster, slightly lower accuracy"},
	{ID: ModelDistilWhisperEN, Label: "Distil Whisper (English)", Description: "English only, fastest"},
	{ID: ModelWhisperLargeV3, Label: "Whisper Large V3", Description: "Most accurate"},
}

// IsKnownModel reports whether id is one of KnownModels.
func IsKnownModel(id string) bool {
	for _, m := range KnownModels {
		if m.ID == id {
			return true
		}
	}
	return false
}

// Config holds transcription defaults.
type Config struct {
	Language string
}
