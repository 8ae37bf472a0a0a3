package chat

import (
	"encoding/json"
	"fmt"
)

// The response body is plain streamed reply text with two sentinel
// delimited JSON records embedded inline: one up front carrying the
// resolved transcription (audio turns only), one after the last content
// fragment carrying the synthesized audio URL.
const (
	startJSONMarker = "$[[START_JSON]]"
	endJSONMarker   = "$[[END_JSON]]"
	audioDoneMarker = "$[[AUDIO_DONE]]"
)

// Emitter delivers one chunk to the caller immediately; implementations
// must flush on every call so fragments are observed incrementally.
type Emitter interface {
	Emit(chunk string) error
}

type startRecord struct {
	ResolvedText string `json:"resolved_text,omitempty"`
}

type audioRecord struct {
	AudioURL  string `json:"audio_url"`
	ChannelID string `json:"channel_id"`
}

func encodeStartRecord(rec startRecord) string {
	data, _ := json.Marshal(rec)
	return fmt.Sprintf("%s%s%s\n", startJSONMarker, data, endJSONMarker)
}

func encodeAudioRecord(rec audioRecord) string {
	data, _ := json.Marshal(rec)
	return fmt.Sprintf("\n%s%s%s", audioDoneMarker, data, audioDoneMarker)
}
