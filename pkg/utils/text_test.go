package utils

import (
	"testing"
)

func TestTruncate(t *testing.T) {
	if Truncate("hello", 10) != "hello" {
		t.Error("short string unchanged")
	}
	if got := Truncate("hello world", 8); got != "hello..." {
		t.Errorf("got %s", got)
	}
	if Truncate("x", 0) != "x" {
		t.Error("maxWidth 0 returns as-is")
	}
	if got := Truncate("日本語テキスト", 7); got != "日本..." {
		t.Errorf("wide: got %s", got)
	}
}

func TestWidthAndPad(t *testing.T) {
	if Width("日本") != 4 {
		t.Errorf("Width: got %d", Width("日本"))
	}
	if got := PadRight("日", 4); got != "日  " {
		t.Errorf("PadRight: got %q", got)
	}
}
