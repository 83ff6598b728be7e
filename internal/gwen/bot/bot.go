// Package bot wires Gwen's conversation, emotion and rendering components
// to Discord. It is presentation glue: every fatal error aborts only the
// single interaction that hit it.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"github.com/solunara/gwen/common/trace"
	"github.com/solunara/gwen/internal/gwen/config"
	"github.com/solunara/gwen/internal/gwen/emotion"
	"github.com/solunara/gwen/internal/gwen/session"
	"github.com/solunara/gwen/internal/gwen/vn"
)

const commandPrefix = "!gwen "

// Bot is the Discord-facing surface of the visual novel.
type Bot struct {
	session    *discordgo.Session
	responder  *session.Responder
	classifier *emotion.Classifier
	renderer   *vn.Renderer
	cfg        *config.Config
	logger     *slog.Logger
	outputDir  string

	mu     sync.Mutex
	novels map[string]*userNovel // per-user scene state, keyed by Discord user ID
}

// userNovel pairs a Novel with the mutex that confines it. Discordgo
// dispatches handlers on their own goroutines, so a chat command and a
// button press for the same user can arrive concurrently; every mutation
// and render of the novel happens under mu.
type userNovel struct {
	mu    sync.Mutex
	novel *vn.Novel
}

// New creates a Bot bound to the given Discord token. Start must be called
// to open the gateway connection.
func New(token string, responder *session.Responder, classifier *emotion.Classifier, renderer *vn.Renderer, cfg *config.Config, outputDir string, logger *slog.Logger) (*Bot, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentMessageContent

	b := &Bot{
		session:    dg,
		responder:  responder,
		classifier: classifier,
		renderer:   renderer,
		cfg:        cfg,
		logger:     logger,
		outputDir:  outputDir,
		novels:     make(map[string]*userNovel),
	}
	dg.AddHandler(b.onMessage)
	dg.AddHandler(b.onInteraction)
	return b, nil
}

// Start opens the gateway connection.
func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord connection: %w", err)
	}
	b.logger.Info("discord bot connected", "bot_name", b.cfg.BotName)
	return nil
}

// Stop closes the gateway connection.
func (b *Bot) Stop() error {
	return b.session.Close()
}

// novelFor returns the scene state for a user, creating it on first use.
func (b *Bot) novelFor(userID string) *userNovel {
	b.mu.Lock()
	defer b.mu.Unlock()

	un, ok := b.novels[userID]
	if !ok {
		un = &userNovel{novel: vn.NewNovel(b.cfg.BotName)}
		b.novels[userID] = un
	}
	return un
}

// dropNovel forgets a user's scene state; the next command starts fresh.
func (b *Bot) dropNovel(userID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.novels, userID)
}

// onMessage handles "!gwen <text>" chat commands.
func (b *Bot) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	if !strings.HasPrefix(m.Content, commandPrefix) {
		return
	}
	query := strings.TrimSpace(strings.TrimPrefix(m.Content, commandPrefix))
	if query == "" {
		return
	}

	ctx := trace.WithTraceID(context.Background(), trace.GenerateID())
	logger := b.logger.With("trace_id", trace.FromContext(ctx), "user_id", m.Author.ID)
	logger.Info("handling chat command", "query_len", len(query))

	un := b.novelFor(m.Author.ID)
	un.mu.Lock()
	location := un.novel.Location
	un.mu.Unlock()

	// The model sees the scene context ahead of the user's words, so the
	// persona can react to where the conversation is happening.
	prompt := fmt.Sprintf("```gwen-data\n{'current-location': '%s', 'current-user': '%s'}\n```%s",
		location, m.Author.Username, query)

	reply, err := b.responder.Query(ctx, prompt, m.Author.ID, m.Author.Username, b.cfg)
	if err != nil {
		logger.Error("chat query failed", "err", err)
		b.sendText(m.ChannelID, "Sorry, I couldn't think of a reply just now.")
		return
	}

	prediction, err := b.classifier.Predict(ctx, reply)
	if err != nil {
		// Mood is cosmetic; a classification failure downgrades the sprite
		// but must not lose the reply.
		logger.Warn("emotion prediction failed", "err", err)
		prediction = emotion.Prediction{Label: vn.MoodLove, Score: 1}
	}

	un.mu.Lock()
	defer un.mu.Unlock()
	un.novel.SetMood(prediction.Label, prediction.Score)

	if _, err := un.novel.PrepareChat(reply); err != nil {
		logger.Error("failed to paginate reply", "err", err)
		b.sendText(m.ChannelID, reply)
		return
	}

	b.sendScene(m.ChannelID, un.novel, logger)
}

// onInteraction handles the overlay buttons.
func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionMessageComponent {
		return
	}
	user := i.User
	if user == nil && i.Member != nil {
		user = i.Member.User
	}
	if user == nil {
		return
	}

	ctx := trace.WithTraceID(context.Background(), trace.GenerateID())
	logger := b.logger.With("trace_id", trace.FromContext(ctx), "user_id", user.ID)

	un := b.novelFor(user.ID)
	un.mu.Lock()
	defer un.mu.Unlock()

	customID := i.MessageComponentData().CustomID
	switch {
	case customID == "menu":
		un.novel.OpenMenu()
	case customID == "menu_up":
		un.novel.MenuUp()
	case customID == "menu_down":
		un.novel.MenuDown()
	case customID == "menu_ok":
		if un.novel.MenuSelect() == vn.ScreenQuit {
			b.endSession(s, i, user.ID, logger)
			return
		}
	case customID == "chat_up":
		un.novel.PageUp()
	case customID == "chat_down":
		un.novel.PageDown()
	case strings.HasPrefix(customID, "map_"):
		index, err := strconv.Atoi(strings.TrimPrefix(customID, "map_"))
		if err != nil {
			logger.Warn("malformed map button id", "custom_id", customID)
			return
		}
		un.novel.SetLocation(index)
	default:
		logger.Warn("unknown button", "custom_id", customID)
		return
	}

	file, err := b.renderScene(un.novel)
	if err != nil {
		logger.Error("failed to render scene", "err", err)
		return
	}
	defer discardScene(file)

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Files:       []*discordgo.File{{Name: "screen.jpg", ContentType: "image/jpeg", Reader: file}},
			Components:  componentsFor(un.novel.Screen),
			Attachments: &[]*discordgo.MessageAttachment{},
		},
	})
	if err != nil {
		logger.Error("failed to update interaction", "err", err)
	}
}

// endSession handles the QUIT menu entry: the screen message is removed,
// the farewell is posted, and the user's scene state is forgotten so the
// next command starts a fresh novel.
func (b *Bot) endSession(s *discordgo.Session, i *discordgo.InteractionCreate, userID string, logger *slog.Logger) {
	b.dropNovel(userID)

	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	}); err != nil {
		logger.Error("failed to acknowledge quit", "err", err)
	}
	if i.Message != nil {
		if err := s.ChannelMessageDelete(i.ChannelID, i.Message.ID); err != nil {
			logger.Error("failed to delete screen message", "err", err)
		}
	}
	b.sendText(i.ChannelID, "Thanks for trying out the demo!")
	logger.Info("session ended")
}

// sendScene renders the novel and posts the screen image with the buttons
// for the current screen.
func (b *Bot) sendScene(channelID string, novel *vn.Novel, logger *slog.Logger) {
	file, err := b.renderScene(novel)
	if err != nil {
		logger.Error("failed to render scene", "err", err)
		b.sendText(channelID, novel.Chat())
		return
	}
	defer discardScene(file)

	_, err = b.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Files:      []*discordgo.File{{Name: "screen.jpg", ContentType: "image/jpeg", Reader: file}},
		Components: componentsFor(novel.Screen),
	})
	if err != nil {
		logger.Error("failed to send scene", "err", err)
	}
}

// renderScene writes the composited scene to a per-render file and returns
// it opened for reading. Each render gets its own file so concurrent
// interactions never clobber one another's output. Callers release the file
// with discardScene once the reply has been sent.
func (b *Bot) renderScene(novel *vn.Novel) (*os.File, error) {
	path := filepath.Join(b.outputDir, fmt.Sprintf("screen-%s.jpg", uuid.New().String()))
	if err := b.renderer.RenderToFile(novel, path); err != nil {
		return nil, err
	}
	return os.Open(path)
}

// discardScene closes and deletes a rendered scene file. Discord holds its
// own copy of the upload, so the local file has no value after the send.
func discardScene(file *os.File) {
	file.Close()
	os.Remove(file.Name())
}

func (b *Bot) sendText(channelID, text string) {
	if _, err := b.session.ChannelMessageSend(channelID, text); err != nil {
		b.logger.Error("failed to send message", "err", err)
	}
}

// componentsFor builds the button row offered on each screen.
func componentsFor(screen vn.Screen) []discordgo.MessageComponent {
	menu := discordgo.Button{Emoji: &discordgo.ComponentEmoji{Name: "📖"}, Style: discordgo.PrimaryButton, CustomID: "menu"}

	var buttons []discordgo.MessageComponent
	switch screen {
	case vn.ScreenMenu:
		buttons = []discordgo.MessageComponent{
			menu,
			discordgo.Button{Emoji: &discordgo.ComponentEmoji{Name: "⬆️"}, Style: discordgo.PrimaryButton, CustomID: "menu_up"},
			discordgo.Button{Emoji: &discordgo.ComponentEmoji{Name: "⬇️"}, Style: discordgo.PrimaryButton, CustomID: "menu_down"},
			discordgo.Button{Emoji: &discordgo.ComponentEmoji{Name: "✅"}, Style: discordgo.PrimaryButton, CustomID: "menu_ok"},
		}
	case vn.ScreenMap:
		buttons = []discordgo.MessageComponent{menu}
		for i := range vn.Locations {
			buttons = append(buttons, discordgo.Button{
				Label:    strconv.Itoa(i + 1),
				Style:    discordgo.PrimaryButton,
				CustomID: fmt.Sprintf("map_%d", i),
			})
		}
	case vn.ScreenChatPaging:
		buttons = []discordgo.MessageComponent{
			menu,
			discordgo.Button{Emoji: &discordgo.ComponentEmoji{Name: "⬆️"}, Style: discordgo.PrimaryButton, CustomID: "chat_up"},
			discordgo.Button{Emoji: &discordgo.ComponentEmoji{Name: "⬇️"}, Style: discordgo.PrimaryButton, CustomID: "chat_down"},
		}
	default:
		buttons = []discordgo.MessageComponent{menu}
	}

	return []discordgo.MessageComponent{discordgo.ActionsRow{Components: buttons}}
}
