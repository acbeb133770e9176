package gateway

import (
	"context"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mymmrac/telego"

	"crossban/internal/logger"
	"crossban/internal/models"
)

// Callback data prefixes for the review action buttons, parsed by the
// callback handler. Format: review:<action>:<guildID>:<userID>.
const (
	ReviewUnbanCallback  = "review:unban"
	ReviewIgnoreCallback = "review:ignore"
)

const guildProfileCacheSize = 128

// TelegramGateway implements Gateway on the Telegram bot API.
type TelegramGateway struct {
	bot      *telego.Bot
	profiles *lru.Cache[int64, GuildProfile]
}

// NewTelegramGateway wraps a connected bot.
func NewTelegramGateway(bot *telego.Bot) *TelegramGateway {
	profiles, _ := lru.New[int64, GuildProfile](guildProfileCacheSize)
	return &TelegramGateway{bot: bot, profiles: profiles}
}

// ApplyBan bans the user in the guild. Telegram's ban endpoint carries no
// reason field, so the reason is only logged locally.
func (g *TelegramGateway) ApplyBan(ctx context.Context, guildID, userID int64, reason string) error {
	err := g.bot.BanChatMember(ctx, &telego.BanChatMemberParams{
		ChatID: telego.ChatID{ID: guildID},
		UserID: userID,
	})
	if err != nil {
		return fmt.Errorf("ban user %d in guild %d: %w", userID, guildID, err)
	}
	logger.Infof("Banned user %d in guild %d: %s", userID, guildID, reason)
	return nil
}

// RemoveBan lifts the user's ban in the guild.
func (g *TelegramGateway) RemoveBan(ctx context.Context, guildID, userID int64, reason string) error {
	err := g.bot.UnbanChatMember(ctx, &telego.UnbanChatMemberParams{
		ChatID:       telego.ChatID{ID: guildID},
		UserID:       userID,
		OnlyIfBanned: true,
	})
	if err != nil {
		return fmt.Errorf("unban user %d in guild %d: %w", userID, guildID, err)
	}
	logger.Infof("Unbanned user %d in guild %d: %s", userID, guildID, reason)
	return nil
}

// IsBanned reports whether Telegram currently shows the user as banned.
func (g *TelegramGateway) IsBanned(ctx context.Context, guildID, userID int64) (bool, error) {
	member, err := g.bot.GetChatMember(ctx, &telego.GetChatMemberParams{
		ChatID: telego.ChatID{ID: guildID},
		UserID: userID,
	})
	if err != nil {
		return false, fmt.Errorf("get chat member %d in guild %d: %w", userID, guildID, err)
	}
	return member.MemberStatus() == telego.MemberStatusBanned, nil
}

// PostReview posts the review prompt with the two-choice action keyboard.
func (g *TelegramGateway) PostReview(ctx context.Context, channelID int64, payload ReviewPayload) (int, error) {
	keyboard := &telego.InlineKeyboardMarkup{
		InlineKeyboard: [][]telego.InlineKeyboardButton{{
			{
				Text:         "📍 Unban locally",
				CallbackData: fmt.Sprintf("%s:%d:%d", ReviewUnbanCallback, payload.ReviewGuildID, payload.User.ID),
			},
			{
				Text:         "❎ Ignore",
				CallbackData: fmt.Sprintf("%s:%d:%d", ReviewIgnoreCallback, payload.ReviewGuildID, payload.User.ID),
			},
		}},
	}

	msg, err := g.bot.SendMessage(ctx, &telego.SendMessageParams{
		ChatID:      telego.ChatID{ID: channelID},
		Text:        renderReviewText(payload),
		ParseMode:   "HTML",
		ReplyMarkup: keyboard,
	})
	if err != nil {
		return 0, fmt.Errorf("post review to channel %d: %w", channelID, err)
	}
	return msg.MessageID, nil
}

// UpdateOutcome rewrites the posted review message in place and removes the
// action keyboard.
func (g *TelegramGateway) UpdateOutcome(ctx context.Context, channelID int64, messageID int, payload OutcomePayload) error {
	_, err := g.bot.EditMessageText(ctx, &telego.EditMessageTextParams{
		ChatID:    telego.ChatID{ID: channelID},
		MessageID: messageID,
		Text:      renderOutcomeText(payload),
		ParseMode: "HTML",
	})
	if err != nil {
		return fmt.Errorf("update review message %d in channel %d: %w", messageID, channelID, err)
	}
	return nil
}

// ResolveUser fetches the user's profile. Telegram only exposes users the
// bot shares a chat with; on failure a minimal ID-only reference is
// returned so the review prompt can still be posted.
func (g *TelegramGateway) ResolveUser(ctx context.Context, userID int64) models.UserRef {
	chat, err := g.bot.GetChat(ctx, &telego.GetChatParams{
		ChatID: telego.ChatID{ID: userID},
	})
	if err != nil {
		logger.Debugf("Could not resolve user %d: %v", userID, err)
		return models.MinimalUser(userID)
	}
	return models.FullUser(userID, chat.FirstName, chat.LastName, chat.Username)
}

// GuildProfile fetches the guild's title and link, with a small cache since
// guild identities rarely change and every review prompt needs one.
func (g *TelegramGateway) GuildProfile(ctx context.Context, guildID int64) GuildProfile {
	if profile, ok := g.profiles.Get(guildID); ok {
		return profile
	}

	profile := GuildProfile{ID: guildID, Name: fmt.Sprintf("guild %d", guildID)}
	chat, err := g.bot.GetChat(ctx, &telego.GetChatParams{
		ChatID: telego.ChatID{ID: guildID},
	})
	if err != nil {
		logger.Warningf("Error getting chat info for guild %d: %v", guildID, err)
		return profile
	}

	profile.Name = chat.Title
	if chat.Username != "" {
		profile.Link = fmt.Sprintf("https://t.me/%s", chat.Username)
	} else {
		// Telegram requires stripping the -100 prefix from supergroup IDs
		// for t.me/c links.
		linkID := guildID
		if linkID < -1000000000000 {
			linkID = -linkID - 1000000000000
		}
		profile.Link = fmt.Sprintf("https://t.me/c/%d", linkID)
	}

	g.profiles.Add(guildID, profile)
	return profile
}

func renderReviewText(p ReviewPayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔔 <b>Unban review</b>\n")
	fmt.Fprintf(&b, "%s was unbanned in %s. This guild requires a moderator decision before the unban is applied here.\n\n", p.User.Mention(), p.SourceGuildName)
	b.WriteString(renderProvenance(p))
	return b.String()
}

func renderOutcomeText(p OutcomePayload) string {
	var b strings.Builder
	switch p.Action {
	case OutcomeUnbanned:
		fmt.Fprintf(&b, "🔨 <b>Unbanned</b>\n")
	case OutcomeIgnored:
		fmt.Fprintf(&b, "❌ <b>Ignored</b>\n")
	}
	fmt.Fprintf(&b, "Review for %s resolved.\n\n", p.User.Mention())
	b.WriteString(renderProvenance(p.ReviewPayload))
	fmt.Fprintf(&b, "\n<b>Action taken</b>\n")
	fmt.Fprintf(&b, "• Action: %s\n", p.Action)
	fmt.Fprintf(&b, "• Executor: <a href=\"tg://user?id=%d\">%d</a>\n", p.ActorID, p.ActorID)
	fmt.Fprintf(&b, "• At: %s\n", p.ResolvedAt.Format("2006-01-02 15:04:05 MST"))
	return b.String()
}

func renderProvenance(p ReviewPayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>Ban summary</b>\n")
	fmt.Fprintf(&b, "• Source guild: %s\n", p.SourceGuildName)
	fmt.Fprintf(&b, "• Banned by: <a href=\"tg://user?id=%d\">%d</a>\n", p.BannedBy, p.BannedBy)
	fmt.Fprintf(&b, "• Banned at: %s\n", p.BannedAt.Format("2006-01-02 15:04:05 MST"))
	reason := p.BanReason
	if reason == "" {
		reason = "No reason provided"
	}
	fmt.Fprintf(&b, "• Reason: %s\n\n", reason)
	fmt.Fprintf(&b, "<b>Unban details</b>\n")
	fmt.Fprintf(&b, "• Unbanned by: <a href=\"tg://user?id=%d\">%d</a>\n", p.UnbannedBy, p.UnbannedBy)
	fmt.Fprintf(&b, "• Unbanned at: %s\n", p.UnbannedAt.Format("2006-01-02 15:04:05 MST"))
	return b.String()
}
