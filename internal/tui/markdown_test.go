package tui

import (
	"strings"
	"testing"
)

func TestMarkdownStyle_RespectsTUITheme(t *testing.T) {
	t.Setenv("BUGSHOT_TUI_MD_STYLE", "")
	t.Setenv("COLORFGBG", "")
	t.Setenv("BUGSHOT_TUI_DARKBG", "")

	t.Setenv("BUGSHOT_TUI_THEME", "light")
	if got := markdownStyle(); got != "light" {
		t.Fatalf("expected light; got %q", got)
	}

	t.Setenv("BUGSHOT_TUI_THEME", "dark")
	if got := markdownStyle(); got != "dark" {
		t.Fatalf("expected dark; got %q", got)
	}
}

func TestMarkdownStyle_MDStyleOverridesTheme(t *testing.T) {
	t.Setenv("COLORFGBG", "")
	t.Setenv("BUGSHOT_TUI_DARKBG", "")
	t.Setenv("BUGSHOT_TUI_THEME", "light")
	t.Setenv("BUGSHOT_TUI_MD_STYLE", "dark")
	if got := markdownStyle(); got != "dark" {
		t.Fatalf("expected dark; got %q", got)
	}
}

func TestThemePreference_COLORFGBG(t *testing.T) {
	t.Setenv("BUGSHOT_TUI_THEME", "")
	t.Setenv("BUGSHOT_TUI_DARKBG", "")
	t.Setenv("COLORFGBG", "0;15")
	dark, ok := themePreference()
	if !ok || dark {
		t.Fatalf("expected light background from COLORFGBG, got dark=%v ok=%v", dark, ok)
	}
}

func TestRenderMarkdown_KeepsText(t *testing.T) {
	t.Setenv("BUGSHOT_TUI_MD_STYLE", "dark")
	out := renderMarkdown("**Checkout**\n\nhttps://example.com", 40)
	if !strings.Contains(out, "Checkout") {
		t.Fatalf("expected rendered text, got %q", out)
	}
	if renderMarkdown("   ", 40) != "" {
		t.Fatalf("expected empty output for blank input")
	}
}
