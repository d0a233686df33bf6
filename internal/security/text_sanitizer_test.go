package security

import "testing"

func TestTextSanitizer_Sanitize(t *testing.T) {
	sanitizer := NewTextSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "プレーンテキストはそのまま",
			input: "Coffee",
			want:  "Coffee",
		},
		{
			name:  "空文字列は空文字列",
			input: "",
			want:  "",
		},
		{
			name:  "前後の空白を除去する",
			input: "  Groceries  ",
			want:  "Groceries",
		},
		{
			name:  "タグを除去して中身を残す",
			input: "<b>Rent</b>",
			want:  "Rent",
		},
		{
			name:  "scriptタグは中身ごと除去する",
			input: "<script>alert('xss')</script>Lunch",
			want:  "Lunch",
		},
		{
			name:  "on*属性付きのタグも除去する",
			input: `<img src=x onerror="alert(1)">Taxi`,
			want:  "Taxi",
		},
		{
			name:  "アンパサンドはエンティティのまま残さない",
			input: "Coffee & Tea",
			want:  "Coffee & Tea",
		},
		{
			name:  "日本語テキスト",
			input: "<p>食費</p>",
			want:  "食費",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.Sanitize(tt.input)
			if got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTextSanitizer_Idempotent(t *testing.T) {
	sanitizer := NewTextSanitizer()

	inputs := []string{
		"Coffee & Tea",
		"<em>Books</em>",
		"  Utilities ",
		"O'Reilly \"Go\"",
	}
	for _, in := range inputs {
		once := sanitizer.Sanitize(in)
		twice := sanitizer.Sanitize(once)
		if once != twice {
			t.Errorf("Sanitize is not idempotent for %q: %q -> %q", in, once, twice)
		}
	}
}

func TestTextSanitizer_ImplementsInterface(t *testing.T) {
	var _ TextSanitizerService = NewTextSanitizer()
}
