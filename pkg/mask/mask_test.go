package mask

import "testing"

func TestEmail(t *testing.T) {
	cases := map[string]string{
		"jdoe@example.com":   "j**e@example.com",
		"jo@example.com":     "**@example.com",
		"j@example.com":      "*@example.com",
		"janedoe@clinic.org": "j*****e@clinic.org",
		"not-an-email":       "************",
	}
	for in, want := range cases {
		if got := Email(in); got != want {
			t.Errorf("Email(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPhone(t *testing.T) {
	cases := map[string]string{
		"+1 (555) 867-5309": "*******5309",
		"5551234":           "***1234",
		"1234":              "****",
	}
	for in, want := range cases {
		if got := Phone(in); got != want {
			t.Errorf("Phone(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestName(t *testing.T) {
	if got := Name("Ramirez"); got != "R." {
		t.Errorf("Name(Ramirez) = %q", got)
	}
	if got := Name("  "); got != "" {
		t.Errorf("Name(blank) = %q", got)
	}
}
