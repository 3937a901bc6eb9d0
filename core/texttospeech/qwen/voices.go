package qwen

type Voice string

const (
	VoiceCherry  Voice = "Cherry"
	VoiceSerena  Voice = "Serena"
	VoiceEthan   Voice = "Ethan"
	VoiceChelsie Voice = "Chelsie"

	defaultVoice = VoiceCherry
)

func GetAvailableVoices() []Voice {
	return []Voice{VoiceCherry, VoiceSerena, VoiceEthan, VoiceChelsie}
}
