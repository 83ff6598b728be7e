package vn

import "fmt"

// Screen identifies which overlay is shown and which buttons are offered.
type Screen int

const (
	// ScreenChat shows the dialogue box with the current reply page.
	ScreenChat Screen = iota
	// ScreenMenu shows the menu overlay with a movable cursor.
	ScreenMenu
	// ScreenMap shows the location picker.
	ScreenMap
	// ScreenAbout shows the about overlay.
	ScreenAbout
	// ScreenChatPaging is the chat screen with page up/down buttons,
	// used when the reply spans more than one page.
	ScreenChatPaging
	// ScreenQuit is the terminal outcome of the QUIT menu entry. It is
	// never rendered; the bot layer ends the session when it sees it.
	ScreenQuit
)

// menuEntries are the selectable items of the menu overlay, in cursor order.
var menuEntries = []Screen{ScreenChat, ScreenMap, ScreenAbout, ScreenQuit}

// menuLabels mirrors menuEntries for rendering.
var menuLabels = []string{"CHAT", "MAP", "ABOUT", "QUIT"}

// Locations a player can move the scene to, in map-button order.
var Locations = []string{"bridge", "swing", "grove", "path"}

// Moods recognized by the sprite set. An unknown or low-confidence emotion
// falls back to "love".
const (
	MoodLove     = "love"
	MoodJoy      = "joy"
	MoodAnger    = "anger"
	MoodSurprise = "surprise"
	MoodSadness  = "sadness"
	MoodFear     = "fear"
)

// moodSprites maps each mood to its sprite asset name.
var moodSprites = map[string]string{
	MoodLove:     "smile",
	MoodJoy:      "delighted",
	MoodAnger:    "angry",
	MoodSurprise: "shocked",
	MoodSadness:  "sad",
	MoodFear:     "shocked",
}

// moodConfidenceFloor is the minimum classifier score required to adopt a
// predicted mood; below it the character defaults to MoodLove.
const moodConfidenceFloor = 0.5

// Novel holds the presentation state of one visual-novel session. It is
// pure state: rendering and Discord wiring live elsewhere. Novel is not
// safe for concurrent use; the bot layer guards each Novel with a
// per-user lock.
type Novel struct {
	Screen   Screen
	MenuPos  int
	Mood     string
	Location string
	BotName  string

	chat  string   // current dialogue page
	pages []string // all pages of the current reply
	page  int      // index into pages
}

// NewNovel returns a Novel in its initial state: chat screen, loving mood,
// standing on the bridge.
func NewNovel(botName string) *Novel {
	return &Novel{
		Screen:   ScreenChat,
		Mood:     MoodLove,
		Location: Locations[0],
		BotName:  botName,
		chat:     "Hello!",
	}
}

// SetMood adopts the predicted emotion when its confidence clears the floor
// and the sprite set knows it; otherwise the mood falls back to MoodLove.
func (n *Novel) SetMood(label string, score float64) {
	if score > moodConfidenceFloor {
		if _, ok := moodSprites[label]; ok {
			n.Mood = label
			return
		}
	}
	n.Mood = MoodLove
}

// Sprite returns the asset name for the current mood.
func (n *Novel) Sprite() string {
	if s, ok := moodSprites[n.Mood]; ok {
		return s
	}
	return moodSprites[MoodLove]
}

// Stats renders the status line shown above the dialogue box.
func (n *Novel) Stats() string {
	return fmt.Sprintf("%s | mood: %s | at: %s", n.BotName, n.Mood, n.Location)
}

// PrepareChat wraps and paginates a reply, resets to its first page, and
// switches to the paging screen when the reply spans multiple pages.
func (n *Novel) PrepareChat(reply string) ([]string, error) {
	wrapped := WrapText(reply, DefaultWrapWidth)
	pages, err := PaginateText(wrapped, DefaultLinesPerPage)
	if err != nil {
		return nil, err
	}

	n.pages = pages
	n.page = 0
	n.chat = pages[0]
	if len(pages) > 1 {
		n.Screen = ScreenChatPaging
	} else {
		n.Screen = ScreenChat
	}
	return pages, nil
}

// Chat returns the dialogue text of the current page.
func (n *Novel) Chat() string {
	return n.chat
}

// PageUp moves to the previous reply page, stopping at the first.
func (n *Novel) PageUp() {
	if n.page > 0 {
		n.page--
		n.chat = n.pages[n.page]
	}
}

// PageDown moves to the next reply page, stopping at the last.
func (n *Novel) PageDown() {
	if n.page < len(n.pages)-1 {
		n.page++
		n.chat = n.pages[n.page]
	}
}

// OpenMenu switches to the menu overlay with the cursor on the first entry.
func (n *Novel) OpenMenu() {
	n.Screen = ScreenMenu
	n.MenuPos = 0
}

// MenuUp moves the menu cursor up, stopping at the first entry.
func (n *Novel) MenuUp() {
	if n.MenuPos > 0 {
		n.MenuPos--
	}
}

// MenuDown moves the menu cursor down, stopping at the last entry.
func (n *Novel) MenuDown() {
	if n.MenuPos < len(menuEntries)-1 {
		n.MenuPos++
	}
}

// MenuSelect activates the highlighted menu entry and returns the screen it
// leads to.
func (n *Novel) MenuSelect() Screen {
	n.Screen = menuEntries[n.MenuPos]
	return n.Screen
}

// MenuText renders the menu overlay text with a cursor marker on the
// highlighted entry.
func (n *Novel) MenuText() string {
	text := ""
	for i, label := range menuLabels {
		marker := "  "
		if i == n.MenuPos {
			marker = "> "
		}
		text += marker + label
		if i < len(menuLabels)-1 {
			text += "\n"
		}
	}
	return text
}

// SetLocation moves the scene to the location at the given map-button
// index. Out-of-range indexes are ignored. Returns to the chat screen.
func (n *Novel) SetLocation(index int) {
	if index >= 0 && index < len(Locations) {
		n.Location = Locations[index]
	}
	n.Screen = ScreenChat
}
