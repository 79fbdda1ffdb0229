package sanitize

import (
	"strings"
	"testing"
)

func TestText(t *testing.T) {
	cases := map[string]string{
		"":                                  "",
		"  Quarterly planning  ":            "Quarterly planning",
		"<b>Launch</b> review":              "Launch review",
		"Q&A session":                       "Q&A session",
		"<script>alert('x')</script>Agenda": "Agenda",
		`Say "hi" & it's done`:              `Say "hi" & it's done`,
		"&lt;b&gt;Escaped&lt;/b&gt; title":  "Escaped title",
		"1 < 2":                             "1 &lt; 2",
	}
	for input, want := range cases {
		if got := Text(input); got != want {
			t.Errorf("Text(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestTextNeverReturnsMarkup(t *testing.T) {
	inputs := []string{
		"&lt;img src=x onerror=alert(1)&gt;",
		"&amp;lt;img src=x onerror=alert(1)&amp;gt;",
		"&#60;script&#62;alert(1)&#60;/script&#62;",
		"<<img src=x onerror=alert(1)>>",
	}
	for _, input := range inputs {
		if got := Text(input); strings.ContainsAny(got, "<>") {
			t.Errorf("Text(%q) = %q, want no angle brackets", input, got)
		}
	}
}

func TestHTMLKeepsSafeMarkup(t *testing.T) {
	input := "<p><strong>Bold</strong> and <em>italic</em></p>"
	if got := HTML(input); got != input {
		t.Errorf("HTML(%q) = %q", input, got)
	}
}

func TestHTMLRemovesScripts(t *testing.T) {
	if got := HTML("<p>Hello</p><script>alert('xss')</script>"); got != "<p>Hello</p>" {
		t.Errorf("expected script removed, got %q", got)
	}
	if got := HTML(`<a href="javascript:alert('xss')">Click</a>`); strings.Contains(got, "javascript:") {
		t.Errorf("expected javascript: href removed, got %q", got)
	}
	if got := HTML(`<button onclick="alert('xss')">Click</button>`); strings.Contains(got, "onclick") {
		t.Errorf("expected onclick removed, got %q", got)
	}
}

func TestIsBlank(t *testing.T) {
	if !IsBlank("<p> </p><br/>") {
		t.Error("markup only input should be blank")
	}
	if IsBlank("<p>x</p>") {
		t.Error("input with text should not be blank")
	}
}
