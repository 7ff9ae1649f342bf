package fetch

import (
	"strings"
	"testing"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name         string
		mode         Mode
		wantPrimary  Mode
		wantEscalate EscalationTrigger
	}{
		{"static_hint", ModeStatic, ModeStatic, EscalateNever},
		{"dynamic_hint", ModeDynamic, ModeDynamic, EscalateNever},
		{"auto", ModeAuto, ModeStatic, EscalateInsufficient},
		{"empty_defaults_to_auto", "", ModeStatic, EscalateInsufficient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := Decide(Request{URL: "https://example.com", Mode: tt.mode})
			if plan.Primary != tt.wantPrimary {
				t.Errorf("Decide().Primary = %q, want %q", plan.Primary, tt.wantPrimary)
			}
			if plan.EscalateOn != tt.wantEscalate {
				t.Errorf("Decide().EscalateOn = %q, want %q", plan.EscalateOn, tt.wantEscalate)
			}
		})
	}
}

func TestInsufficientContent(t *testing.T) {
	longText := strings.Repeat("All work and no play makes Jack a dull boy. ", 20)

	tests := []struct {
		name   string
		doc    *RawDocument
		minLen int
		want   bool
	}{
		{
			name: "nil_document",
			doc:  nil, minLen: 200, want: true,
		},
		{
			name: "long_article",
			doc: &RawDocument{
				StatusCode: 200,
				Body:       []byte("<html><body><p>" + longText + "</p></body></html>"),
			},
			minLen: 200,
			want:   false,
		},
		{
			name: "short_text",
			doc: &RawDocument{
				StatusCode: 200,
				Body:       []byte("<html><body><p>Loading...</p></body></html>"),
			},
			minLen: 200,
			want:   true,
		},
		{
			name: "react_shell_with_long_scripts",
			doc: &RawDocument{
				StatusCode: 200,
				Body: []byte(`<html><body><div id="root"></div><script>` +
					longText + `</script></body></html>`),
			},
			minLen: 200,
			want:   true,
		},
		{
			name: "noscript_warning",
			doc: &RawDocument{
				StatusCode: 200,
				Body: []byte("<html><body><p>" + longText + "</p>" +
					"<noscript>Please enable JavaScript to view this site.</noscript></body></html>"),
			},
			minLen: 200,
			want:   true,
		},
		{
			name: "forbidden_block",
			doc: &RawDocument{
				StatusCode: 403,
				Body:       []byte("<html><body><p>" + longText + "</p></body></html>"),
			},
			minLen: 200,
			want:   true,
		},
		{
			name: "script_text_does_not_count",
			doc: &RawDocument{
				StatusCode: 200,
				Body: []byte("<html><body><p>hi</p><script>" +
					longText + "</script></body></html>"),
			},
			minLen: 200,
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InsufficientContent(tt.doc, tt.minLen); got != tt.want {
				t.Errorf("InsufficientContent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"valid_https", "https://example.com/page", false},
		{"valid_http", "http://example.com", false},
		{"relative", "/just/a/path", true},
		{"no_host", "https://", true},
		{"bad_scheme", "ftp://example.com/file", true},
		{"garbage", "://nope", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := Request{URL: tt.url, Mode: ModeAuto}
			err := req.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
			if err != nil {
				kind, ok := KindOf(err)
				if !ok || kind != KindBadRequest {
					t.Errorf("Validate(%q) kind = %v, want KindBadRequest", tt.url, kind)
				}
			}
		})
	}
}
