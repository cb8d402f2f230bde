package orchestrator

import "testing"

func TestIsEndPhrase(t *testing.T) {
	cases := []struct {
		name     string
		utter    string
		wakeName string
		want     bool
	}{
		{"exact goodbye", "Goodbye", "jarvis", true},
		{"embedded anywhere", "okay that's all for now, thanks", "jarvis", true},
		{"case and punctuation insensitive", "NEVER, MIND!!", "jarvis", true},
		{"wake-dependent end", "jarvis end", "jarvis", true},
		{"wake-dependent stop", "Jarvis, stop.", "jarvis", true},
		{"wake name from config, not literal jarvis", "computer end", "computer", true},
		{"wrong wake name does not match", "jarvis end", "computer", false},
		{"ordinary question does not match", "what time is it", "jarvis", false},
		{"bye as standalone word matches", "bye", "jarvis", true},
		{"substring match is intentionally loose", "goodbyeee is not a real word", "jarvis", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := isEndPhrase(tc.utter, tc.wakeName)
			if got != tc.want {
				t.Errorf("isEndPhrase(%q, %q) = %v, want %v", tc.utter, tc.wakeName, got, tc.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"Hello, World!":     "hello world",
		"  extra   spaces ": "extra spaces",
		"ALL CAPS":          "all caps",
		"":                  "",
	}
	for in, want := range cases {
		if got := normalize(in); got != want {
			t.Errorf("normalize(%q) = %q, want %q", in, got, want)
		}
	}
}
