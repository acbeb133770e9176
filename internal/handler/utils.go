package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"
)

// isUserAdmin checks if a user is an admin in a chat
func isUserAdmin(ctx context.Context, bot *telego.Bot, chatID int64, userID int64) (bool, error) {
	admins, err := bot.GetChatAdministrators(ctx, &telego.GetChatAdministratorsParams{
		ChatID: telego.ChatID{ID: chatID},
	})
	if err != nil {
		return false, err
	}

	for _, admin := range admins {
		if admin.MemberUser().ID == userID {
			return true, nil
		}
	}

	return false, nil
}

// parseReviewCallback extracts the guild and user IDs from callback data of
// the form review:<action>:<guildID>:<userID>.
func parseReviewCallback(data string) (int64, int64, error) {
	parts := strings.Split(data, ":")
	if len(parts) != 4 {
		return 0, 0, fmt.Errorf("invalid data format: %s", data)
	}

	guildID, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid guild ID: %v", err)
	}

	userID, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid user ID: %v", err)
	}

	return guildID, userID, nil
}

// replyHTML sends an HTML-formatted reply into the chat the message came
// from.
func replyHTML(ctx context.Context, bot *telego.Bot, chatID int64, text string) error {
	_, err := bot.SendMessage(ctx, &telego.SendMessageParams{
		ChatID:    telego.ChatID{ID: chatID},
		Text:      text,
		ParseMode: "HTML",
	})
	return err
}
