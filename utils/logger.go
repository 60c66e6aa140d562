package utils

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"ballot-bot/models"

	"github.com/bwmarrin/discordgo"
	slogmulti "github.com/samber/slog-multi"
)

const (
	ColorInfo  = 0x00ff00 // Green
	ColorWarn  = 0xffff00 // Yellow
	ColorError = 0xff0000 // Red
)

// EmbedSender posts embeds to a channel. *discordgo.Session satisfies it.
type EmbedSender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// InitLogger builds the process logger and installs it as the slog default. Records go to
// stderr, to cfg.File as JSON lines when set, and to the admin channel when both sender
// and channelID are given. The returned func closes the log file.
func InitLogger(cfg models.LogConfig, sender EmbedSender, channelID string) (*slog.Logger, func() error, error) {
	level := ParseLevel(cfg.Level, slog.LevelInfo)
	handlers := []slog.Handler{
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}),
	}

	closer := func() error { return nil }
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}))
		closer = f.Close
	}

	if sender != nil && channelID != "" {
		handlers = append(handlers, NewChannelHandler(sender, channelID, ParseLevel(cfg.AdminLevel, slog.LevelWarn)))
	}

	logger := slog.New(slogmulti.Fanout(handlers...))
	slog.SetDefault(logger)
	return logger, closer, nil
}

// ParseLevel turns a level name such as "debug" or "WARN" into a slog.Level.
func ParseLevel(name string, fallback slog.Level) slog.Level {
	if name == "" {
		return fallback
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return fallback
	}
	return level
}

// ChannelHandler forwards log records as embeds to an admin channel.
type ChannelHandler struct {
	sender    EmbedSender
	channelID string
	level     slog.Leveler
	attrs     []slog.Attr
	group     string
	fallback  io.Writer
}

// NewChannelHandler creates a handler posting records at or above level to channelID.
func NewChannelHandler(sender EmbedSender, channelID string, level slog.Leveler) *ChannelHandler {
	return &ChannelHandler{
		sender:    sender,
		channelID: channelID,
		level:     level,
		fallback:  os.Stderr,
	}
}

func (h *ChannelHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *ChannelHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make([]slog.Attr, 0, len(h.attrs)+r.NumAttrs())
	attrs = append(attrs, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, h.qualify(a))
		return true
	})

	embed := buildEmbed(r, attrs)
	if _, err := h.sender.ChannelMessageSendEmbed(h.channelID, embed); err != nil {
		// The default logger fans out into this handler, so report on the raw writer.
		fmt.Fprintf(h.fallback, "Error sending log message to Discord: %v\n", err)
	}
	return nil
}

func (h *ChannelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append([]slog.Attr{}, h.attrs...)
	for _, a := range attrs {
		clone.attrs = append(clone.attrs, h.qualify(a))
	}
	return &clone
}

func (h *ChannelHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	if h.group != "" {
		clone.group = h.group + "." + name
	} else {
		clone.group = name
	}
	return &clone
}

func (h *ChannelHandler) qualify(a slog.Attr) slog.Attr {
	if h.group == "" {
		return a
	}
	return slog.Attr{Key: h.group + "." + a.Key, Value: a.Value}
}

func buildEmbed(r slog.Record, attrs []slog.Attr) *discordgo.MessageEmbed {
	var color int
	switch {
	case r.Level >= slog.LevelError:
		color = ColorError
	case r.Level >= slog.LevelWarn:
		color = ColorWarn
	default:
		color = ColorInfo
	}

	timestamp := r.Time
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Log Level: %s", r.Level),
		Description: r.Message,
		Color:       color,
		Timestamp:   timestamp.Format(time.RFC3339),
	}

	var details []string
	for _, a := range attrs {
		switch a.Key {
		case "module", "operation":
			embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
				Name:   a.Key,
				Value:  a.Value.String(),
				Inline: true,
			})
		default:
			details = append(details, fmt.Sprintf("%s=%s", a.Key, a.Value.String()))
		}
	}
	if len(details) > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "details",
			Value: strings.Join(details, "\n"),
		})
	}
	return embed
}
