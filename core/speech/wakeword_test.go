package speech

import "testing"

func TestExtractWakeCommandStripsWakeWordPrefix(t *testing.T) {
	command, ok := ExtractWakeCommand("VoiceOS open safari", []string{"voiceos"})
	if !ok {
		t.Fatalf("expected wake word to match")
	}
	if command != "open safari" {
		t.Fatalf("expected command 'open safari', got %q", command)
	}
}

func TestExtractWakeCommandIgnoresCaseAndPunctuation(t *testing.T) {
	command, ok := ExtractWakeCommand("Voice OS, what's the weather?", []string{"VoiceOS"})
	if !ok {
		t.Fatalf("expected split wake word to match")
	}
	if command != "what's the weather?" {
		t.Fatalf("expected command 'what's the weather?', got %q", command)
	}
}

func TestExtractWakeCommandRequiresPrefix(t *testing.T) {
	if _, ok := ExtractWakeCommand("please ask voiceos to open safari", []string{"voiceos"}); ok {
		t.Fatalf("expected mid-sentence mention to be rejected")
	}
	if _, ok := ExtractWakeCommand("open safari", []string{"voiceos"}); ok {
		t.Fatalf("expected unrelated speech to be rejected")
	}
}

func TestExtractWakeCommandWakeWordAlone(t *testing.T) {
	command, ok := ExtractWakeCommand("VoiceOS.", []string{"voiceos"})
	if !ok {
		t.Fatalf("expected bare wake word to match")
	}
	if command != "" {
		t.Fatalf("expected empty command, got %q", command)
	}
}

func TestExtractWakeCommandMatchesAnyConfiguredWord(t *testing.T) {
	command, ok := ExtractWakeCommand("Computer, open mail", []string{"voiceos", "computer"})
	if !ok {
		t.Fatalf("expected alternate wake word to match")
	}
	if command != "open mail" {
		t.Fatalf("expected command 'open mail', got %q", command)
	}
}
