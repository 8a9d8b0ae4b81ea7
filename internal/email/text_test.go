package email

import "testing"

func TestPlainText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "plain", in: "Invoice #42 is ready", want: "Invoice #42 is ready"},
		{name: "tags stripped", in: "<p>Hello <b>Alice</b></p>", want: "Hello Alice"},
		{name: "entities decoded", in: "Tom &amp; Jerry &lt;3", want: "Tom & Jerry <3"},
		{name: "whitespace collapsed", in: "<div>a\n\n  b</div>\t<span>c</span>", want: "a b c"},
		{name: "script removed", in: "<script>alert(1)</script>safe", want: "safe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := PlainText(tt.in); got != tt.want {
				t.Errorf("PlainText(%q): got %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	if got := Truncate("hello", 10); got != "hello" {
		t.Errorf("Truncate short: got %q", got)
	}
	if got := Truncate("héllo world", 5); got != "héllo…" {
		t.Errorf("Truncate long: got %q", got)
	}
	if got := Truncate("hello", 0); got != "hello" {
		t.Errorf("Truncate zero limit: got %q", got)
	}
}

func TestEmailBody(t *testing.T) {
	t.Parallel()

	e := &Email{TextBody: "text"}
	if got := e.Body(); got != "text" {
		t.Errorf("Body with text: got %q", got)
	}

	e = &Email{HtmlBody: "<p>only <i>html</i></p>"}
	if got := e.Body(); got != "only html" {
		t.Errorf("Body with html: got %q", got)
	}
}

func TestEmailRecipients(t *testing.T) {
	t.Parallel()

	e := &Email{
		To:  []string{"a@example.com"},
		Cc:  []string{"b@example.com"},
		Bcc: []string{"c@example.com"},
	}
	got := e.Recipients()
	want := []string{"a@example.com", "b@example.com", "c@example.com"}
	if len(got) != len(want) {
		t.Fatalf("Recipients: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Recipients[%d]: got %q, want %q", i, got[i], want[i])
		}
	}
}
