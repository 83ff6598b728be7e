package vn

import (
	"strings"
	"testing"
)

func TestNovel_InitialState(t *testing.T) {
	n := NewNovel("Gwen")
	if n.Screen != ScreenChat {
		t.Errorf("expected chat screen, got %v", n.Screen)
	}
	if n.Mood != MoodLove {
		t.Errorf("expected love mood, got %q", n.Mood)
	}
	if n.Location != "bridge" {
		t.Errorf("expected bridge location, got %q", n.Location)
	}
}

func TestNovel_SetMood(t *testing.T) {
	tests := []struct {
		name  string
		label string
		score float64
		want  string
	}{
		{"confident known emotion", MoodJoy, 0.92, MoodJoy},
		{"low confidence falls back", MoodAnger, 0.4, MoodLove},
		{"boundary score falls back", MoodSadness, 0.5, MoodLove},
		{"unknown label falls back", "disgust", 0.99, MoodLove},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewNovel("Gwen")
			n.SetMood(tt.label, tt.score)
			if n.Mood != tt.want {
				t.Errorf("SetMood(%q, %v): expected mood %q, got %q", tt.label, tt.score, tt.want, n.Mood)
			}
		})
	}
}

func TestNovel_SpriteMapping(t *testing.T) {
	tests := []struct {
		mood   string
		sprite string
	}{
		{MoodLove, "smile"},
		{MoodJoy, "delighted"},
		{MoodAnger, "angry"},
		{MoodSurprise, "shocked"},
		{MoodSadness, "sad"},
		{MoodFear, "shocked"},
	}

	n := NewNovel("Gwen")
	for _, tt := range tests {
		n.Mood = tt.mood
		if got := n.Sprite(); got != tt.sprite {
			t.Errorf("mood %q: expected sprite %q, got %q", tt.mood, tt.sprite, got)
		}
	}
}

func TestNovel_PrepareChatSinglePage(t *testing.T) {
	n := NewNovel("Gwen")
	pages, err := n.PrepareChat("short reply")
	if err != nil {
		t.Fatalf("PrepareChat() error: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(pages))
	}
	if n.Screen != ScreenChat {
		t.Errorf("expected chat screen for single page, got %v", n.Screen)
	}
	if n.Chat() != "short reply" {
		t.Errorf("unexpected chat text %q", n.Chat())
	}
}

func TestNovel_PrepareChatMultiPagePaging(t *testing.T) {
	n := NewNovel("Gwen")
	long := strings.Repeat("many words fill the dialogue box today ", 12)

	pages, err := n.PrepareChat(long)
	if err != nil {
		t.Fatalf("PrepareChat() error: %v", err)
	}
	if len(pages) < 2 {
		t.Fatalf("expected multiple pages, got %d", len(pages))
	}
	if n.Screen != ScreenChatPaging {
		t.Errorf("expected paging screen for multi-page reply, got %v", n.Screen)
	}
	if n.Chat() != pages[0] {
		t.Errorf("expected first page shown, got %q", n.Chat())
	}

	n.PageDown()
	if n.Chat() != pages[1] {
		t.Errorf("expected second page after PageDown, got %q", n.Chat())
	}
	n.PageUp()
	if n.Chat() != pages[0] {
		t.Errorf("expected first page after PageUp, got %q", n.Chat())
	}

	// Stops at boundaries.
	n.PageUp()
	if n.Chat() != pages[0] {
		t.Errorf("PageUp at first page moved: %q", n.Chat())
	}
	for i := 0; i < len(pages)+3; i++ {
		n.PageDown()
	}
	if n.Chat() != pages[len(pages)-1] {
		t.Errorf("PageDown past last page moved: %q", n.Chat())
	}
}

func TestNovel_MenuNavigation(t *testing.T) {
	n := NewNovel("Gwen")
	n.OpenMenu()
	if n.Screen != ScreenMenu || n.MenuPos != 0 {
		t.Fatalf("unexpected menu state: screen=%v pos=%d", n.Screen, n.MenuPos)
	}

	n.MenuDown()
	if n.MenuPos != 1 {
		t.Errorf("expected cursor at 1, got %d", n.MenuPos)
	}
	n.MenuUp()
	n.MenuUp()
	if n.MenuPos != 0 {
		t.Errorf("expected cursor clamped at 0, got %d", n.MenuPos)
	}
	for i := 0; i < 6; i++ {
		n.MenuDown()
	}
	if n.MenuPos != 3 {
		t.Errorf("expected cursor clamped at 3, got %d", n.MenuPos)
	}
}

func TestNovel_MenuSelect(t *testing.T) {
	tests := []struct {
		pos  int
		want Screen
	}{
		{0, ScreenChat},
		{1, ScreenMap},
		{2, ScreenAbout},
		{3, ScreenQuit},
	}

	for _, tt := range tests {
		n := NewNovel("Gwen")
		n.OpenMenu()
		n.MenuPos = tt.pos
		if got := n.MenuSelect(); got != tt.want {
			t.Errorf("pos %d: expected screen %v, got %v", tt.pos, tt.want, got)
		}
	}
}

func TestNovel_MenuText(t *testing.T) {
	n := NewNovel("Gwen")
	n.OpenMenu()
	n.MenuDown()

	text := n.MenuText()
	lines := strings.Split(text, "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 menu lines, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[1], "> ") {
		t.Errorf("expected cursor on MAP line, got %q", lines[1])
	}
	if strings.HasPrefix(lines[0], "> ") {
		t.Errorf("unexpected cursor on CHAT line: %q", lines[0])
	}
}

func TestNovel_SetLocation(t *testing.T) {
	n := NewNovel("Gwen")
	n.OpenMenu()

	n.SetLocation(2)
	if n.Location != "grove" {
		t.Errorf("expected grove, got %q", n.Location)
	}
	if n.Screen != ScreenChat {
		t.Errorf("expected return to chat screen, got %v", n.Screen)
	}

	n.SetLocation(99)
	if n.Location != "grove" {
		t.Errorf("out-of-range index changed location to %q", n.Location)
	}
}

func TestNovel_Stats(t *testing.T) {
	n := NewNovel("Gwen")
	n.SetMood(MoodJoy, 0.9)
	n.SetLocation(1)

	stats := n.Stats()
	for _, want := range []string{"Gwen", MoodJoy, "swing"} {
		if !strings.Contains(stats, want) {
			t.Errorf("stats %q missing %q", stats, want)
		}
	}
}
