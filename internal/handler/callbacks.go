package handler

import (
	"strings"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"

	"crossban/internal/gateway"
	"crossban/internal/logger"
	"crossban/internal/sync"
)

// HandleCallbackQuery processes callback queries from inline keyboards
func HandleCallbackQuery(ctx *th.Context, bot *telego.Bot, query telego.CallbackQuery) error {
	// Skip if no data
	if query.Data == "" {
		return nil
	}

	logger.Infof("Received callback query: %s", query.Data)

	if strings.HasPrefix(query.Data, gateway.ReviewUnbanCallback+":") {
		return handleReviewCallback(ctx, bot, query, true)
	} else if strings.HasPrefix(query.Data, gateway.ReviewIgnoreCallback+":") {
		return handleReviewCallback(ctx, bot, query, false)
	}

	return nil
}

// handleReviewCallback resolves a moderator's decision on an unban review
// prompt.
func handleReviewCallback(ctx *th.Context, bot *telego.Bot, query telego.CallbackQuery, unban bool) error {
	guildID, userID, err := parseReviewCallback(query.Data)
	if err != nil {
		logger.Warningf("Invalid callback data in review callback: %s", query.Data)
		return nil
	}

	// Only admins of the reviewing guild may decide.
	isAdmin, err := isUserAdmin(ctx.Context(), bot, guildID, query.From.ID)
	if err != nil || !isAdmin {
		return bot.AnswerCallbackQuery(ctx.Context(), &telego.AnswerCallbackQueryParams{
			CallbackQueryID: query.ID,
			Text:            "You don't have permission to resolve unban reviews.",
			ShowAlert:       true,
		})
	}

	if query.Message == nil {
		logger.Warningf("Review callback without message context: %s", query.Data)
		return nil
	}
	channelID := query.Message.GetChat().ID
	messageID := query.Message.GetMessageID()

	outcome, err := deps.Reviewer.Resolve(ctx.Context(), sync.ReviewAction{
		GuildID:   guildID,
		UserID:    userID,
		ActorID:   query.From.ID,
		ChannelID: channelID,
		MessageID: messageID,
		Unban:     unban,
	})

	var text string
	showAlert := false
	switch outcome {
	case sync.ReviewResolvedUnban:
		text = "✅ Unbanned locally."
	case sync.ReviewResolvedIgnore:
		text = "❎ Ignored the ban; it stays in force here."
	case sync.ReviewNotBanned:
		text = "❌ This user is not banned in this guild."
		showAlert = true
	default:
		logger.Errorf("Review resolution failed for user %d in guild %d: %v", userID, guildID, err)
		text = "❌ Failed to unban. Do I have the correct permissions? Press again to retry."
		showAlert = true
	}

	ackErr := bot.AnswerCallbackQuery(ctx.Context(), &telego.AnswerCallbackQueryParams{
		CallbackQueryID: query.ID,
		Text:            text,
		ShowAlert:       showAlert,
	})
	if ackErr != nil {
		logger.Warningf("Error answering callback query: %v", ackErr)
	}
	return nil
}
