package chat

import "testing"

func TestEncodeStartRecordWithResolvedText(t *testing.T) {
	got := encodeStartRecord(startRecord{ResolvedText: "hello there"})
	want := `$[[START_JSON]]{"resolved_text":"hello there"}$[[END_JSON]]` + "\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestEncodeStartRecordOmitsEmptyResolvedText(t *testing.T) {
	got := encodeStartRecord(startRecord{})
	want := `$[[START_JSON]]{}$[[END_JSON]]` + "\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestEncodeAudioRecord(t *testing.T) {
	got := encodeAudioRecord(audioRecord{AudioURL: "/static/audio/audio-1.wav", ChannelID: "ch-1"})
	want := "\n" + `$[[AUDIO_DONE]]{"audio_url":"/static/audio/audio-1.wav","channel_id":"ch-1"}$[[AUDIO_DONE]]`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
