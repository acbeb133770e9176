package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"

	"crossban/internal/logger"
	"crossban/internal/models"
)

// dispatchCommand routes slash commands. Returns true when the message was
// a command addressed to this bot, even if handling it failed.
func dispatchCommand(ctx *th.Context, bot *telego.Bot, message telego.Message) (bool, error) {
	if message.From == nil || !strings.HasPrefix(message.Text, "/") {
		return false, nil
	}

	fields := strings.Fields(message.Text)
	command := fields[0]
	// Commands in groups may be addressed as /command@botname.
	if at := strings.Index(command, "@"); at != -1 {
		command = command[:at]
	}
	args := fields[1:]

	switch command {
	case "/help":
		return true, sendHelpMessage(ctx.Context(), bot, message.Chat.ID)
	case "/crossban":
		return true, requireGuildAdmin(ctx, bot, message, func() error {
			return handleStatusCommand(ctx.Context(), bot, message.Chat.ID)
		})
	case "/autoban":
		return true, requireGuildAdmin(ctx, bot, message, func() error {
			return handleToggleCommand(ctx.Context(), bot, message.Chat.ID, "autoban", args)
		})
	case "/syncout":
		return true, requireGuildAdmin(ctx, bot, message, func() error {
			return handleToggleCommand(ctx.Context(), bot, message.Chat.ID, "syncout", args)
		})
	case "/unban_mode":
		return true, requireGuildAdmin(ctx, bot, message, func() error {
			return handleUnbanModeCommand(ctx.Context(), bot, message.Chat.ID, args)
		})
	case "/logging_channel":
		return true, requireGuildAdmin(ctx, bot, message, func() error {
			return handleLoggingChannelCommand(ctx.Context(), bot, message.Chat.ID)
		})
	case "/trust_add":
		return true, requireGuildAdmin(ctx, bot, message, func() error {
			return handleTrustAddCommand(ctx.Context(), bot, message, args)
		})
	case "/trust_del":
		return true, requireGuildAdmin(ctx, bot, message, func() error {
			return handleTrustDelCommand(ctx.Context(), bot, message, args)
		})
	case "/trust_list":
		return true, requireGuildAdmin(ctx, bot, message, func() error {
			return handleTrustListCommand(ctx.Context(), bot, message.Chat.ID)
		})
	}

	return false, nil
}

// requireGuildAdmin runs fn only for admins of a federated guild chat.
func requireGuildAdmin(ctx *th.Context, bot *telego.Bot, message telego.Message, fn func() error) error {
	chatID := message.Chat.ID
	if message.Chat.Type == "private" {
		return replyHTML(ctx.Context(), bot, chatID, "This command only works inside a federated guild chat.")
	}
	if !deps.Config.Federation.IsFederated(chatID) {
		return replyHTML(ctx.Context(), bot, chatID, "This guild is not part of the ban sync federation.")
	}

	isAdmin, err := isUserAdmin(ctx.Context(), bot, chatID, message.From.ID)
	if err != nil {
		logger.Warningf("Error checking admin status for user %d in chat %d: %v", message.From.ID, chatID, err)
		return err
	}
	if !isAdmin {
		return replyHTML(ctx.Context(), bot, chatID, "Only guild admins can change ban sync settings.")
	}

	return fn()
}

// sendHelpMessage sends usage information
func sendHelpMessage(ctx context.Context, bot *telego.Bot, chatID int64) error {
	helpText := "<b>Ban sync</b>\n" +
		"Bans and unbans issued by this guild's sources of truth are propagated to every other federated guild.\n\n" +
		"<b>Commands (guild admins)</b>\n" +
		"/crossban - show this guild's sync status\n" +
		"/autoban on|off - accept incoming bans automatically\n" +
		"/syncout on|off - participate in outgoing sync\n" +
		"/unban_mode auto|review - how incoming unbans are handled\n" +
		"/logging_channel - post unban review prompts into this chat\n" +
		"/trust_add &lt;user id&gt; - add a source of truth (or reply to a message)\n" +
		"/trust_del &lt;user id&gt; - remove a source of truth\n" +
		"/trust_list - list sources of truth"
	return replyHTML(ctx, bot, chatID, helpText)
}

// handleStatusCommand reports this guild's policy and engine state.
func handleStatusCommand(ctx context.Context, bot *telego.Bot, chatID int64) error {
	cfg, err := deps.Store.GuildConfigs.GetOrCreate(chatID)
	if err != nil {
		logger.Errorf("Error loading guild config for %d: %v", chatID, err)
		return replyHTML(ctx, bot, chatID, "Failed to load guild configuration.")
	}

	engineState := "enabled"
	if !deps.Engine.Enabled() {
		engineState = "disabled"
	}
	loggingChannel := "not set"
	if cfg.LoggingChannelID != 0 {
		loggingChannel = strconv.FormatInt(cfg.LoggingChannelID, 10)
	}

	text := fmt.Sprintf("<b>Ban sync status</b>\n"+
		"Engine: %s\n"+
		"Outgoing sync: %s\n"+
		"Auto-ban incoming: %s\n"+
		"Unban mode: %s\n"+
		"Logging channel: %s\n"+
		"Sources of truth: %d",
		engineState,
		onOff(cfg.Enabled),
		onOff(cfg.AutoBan),
		cfg.UnbanMode,
		loggingChannel,
		len(deps.Trust.List(chatID)),
	)
	return replyHTML(ctx, bot, chatID, text)
}

// handleToggleCommand flips one boolean policy dimension.
func handleToggleCommand(ctx context.Context, bot *telego.Bot, chatID int64, setting string, args []string) error {
	if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
		return replyHTML(ctx, bot, chatID, fmt.Sprintf("Usage: /%s on|off", setting))
	}
	enable := args[0] == "on"

	cfg, err := deps.Store.GuildConfigs.GetOrCreate(chatID)
	if err != nil {
		logger.Errorf("Error loading guild config for %d: %v", chatID, err)
		return replyHTML(ctx, bot, chatID, "Failed to load guild configuration.")
	}

	var label string
	switch setting {
	case "autoban":
		cfg.AutoBan = enable
		label = "Auto-ban incoming"
	case "syncout":
		cfg.Enabled = enable
		label = "Outgoing sync"
	}

	if err := deps.Store.GuildConfigs.Update(cfg); err != nil {
		logger.Errorf("Error updating guild config for %d: %v", chatID, err)
		return replyHTML(ctx, bot, chatID, "Failed to save guild configuration.")
	}
	return replyHTML(ctx, bot, chatID, fmt.Sprintf("%s is now <b>%s</b>.", label, onOff(enable)))
}

// handleUnbanModeCommand switches between AUTO and REVIEW unban handling.
func handleUnbanModeCommand(ctx context.Context, bot *telego.Bot, chatID int64, args []string) error {
	if len(args) != 1 || (args[0] != "auto" && args[0] != "review") {
		return replyHTML(ctx, bot, chatID, "Usage: /unban_mode auto|review")
	}

	cfg, err := deps.Store.GuildConfigs.GetOrCreate(chatID)
	if err != nil {
		logger.Errorf("Error loading guild config for %d: %v", chatID, err)
		return replyHTML(ctx, bot, chatID, "Failed to load guild configuration.")
	}

	if args[0] == "review" {
		cfg.UnbanMode = models.UnbanModeReview
	} else {
		cfg.UnbanMode = models.UnbanModeAuto
	}

	if err := deps.Store.GuildConfigs.Update(cfg); err != nil {
		logger.Errorf("Error updating guild config for %d: %v", chatID, err)
		return replyHTML(ctx, bot, chatID, "Failed to save guild configuration.")
	}

	text := fmt.Sprintf("Incoming unbans are now handled in <b>%s</b> mode.", cfg.UnbanMode)
	if cfg.UnbanMode == models.UnbanModeReview && cfg.LoggingChannelID == 0 {
		text += "\nNo logging channel is set; run /logging_channel in the chat that should receive review prompts."
	}
	return replyHTML(ctx, bot, chatID, text)
}

// handleLoggingChannelCommand records the current chat as the guild's
// review prompt channel.
func handleLoggingChannelCommand(ctx context.Context, bot *telego.Bot, chatID int64) error {
	cfg, err := deps.Store.GuildConfigs.GetOrCreate(chatID)
	if err != nil {
		logger.Errorf("Error loading guild config for %d: %v", chatID, err)
		return replyHTML(ctx, bot, chatID, "Failed to load guild configuration.")
	}

	cfg.LoggingChannelID = chatID
	if err := deps.Store.GuildConfigs.Update(cfg); err != nil {
		logger.Errorf("Error updating guild config for %d: %v", chatID, err)
		return replyHTML(ctx, bot, chatID, "Failed to save guild configuration.")
	}
	return replyHTML(ctx, bot, chatID, "Unban review prompts for this guild will be posted here.")
}

// handleTrustAddCommand registers a source of truth for this guild.
func handleTrustAddCommand(ctx context.Context, bot *telego.Bot, message telego.Message, args []string) error {
	chatID := message.Chat.ID
	userID, err := trustTargetID(message, args)
	if err != nil {
		return replyHTML(ctx, bot, chatID, "Usage: /trust_add &lt;user id&gt; (or reply to a message from the user)")
	}
	if userID == bot.ID() || (deps.Config.Federation.ExcludedUserID != 0 && userID == deps.Config.Federation.ExcludedUserID) {
		return replyHTML(ctx, bot, chatID, "That account cannot be a source of truth.")
	}

	if err := deps.Store.TruthSources.Add(chatID, userID, message.From.ID); err != nil {
		logger.Errorf("Error adding truth source %d for guild %d: %v", userID, chatID, err)
		return replyHTML(ctx, bot, chatID, "Failed to add the source of truth.")
	}
	deps.Trust.Add(chatID, userID)

	logger.Infof("User %d added as source of truth for guild %d by %d", userID, chatID, message.From.ID)
	return replyHTML(ctx, bot, chatID, fmt.Sprintf("User <code>%d</code> is now a source of truth for this guild.", userID))
}

// handleTrustDelCommand removes a source of truth for this guild.
func handleTrustDelCommand(ctx context.Context, bot *telego.Bot, message telego.Message, args []string) error {
	chatID := message.Chat.ID
	userID, err := trustTargetID(message, args)
	if err != nil {
		return replyHTML(ctx, bot, chatID, "Usage: /trust_del &lt;user id&gt; (or reply to a message from the user)")
	}

	if err := deps.Store.TruthSources.Remove(chatID, userID); err != nil {
		logger.Errorf("Error removing truth source %d for guild %d: %v", userID, chatID, err)
		return replyHTML(ctx, bot, chatID, "Failed to remove the source of truth.")
	}
	deps.Trust.Remove(chatID, userID)

	logger.Infof("User %d removed as source of truth for guild %d by %d", userID, chatID, message.From.ID)
	return replyHTML(ctx, bot, chatID, fmt.Sprintf("User <code>%d</code> is no longer a source of truth for this guild.", userID))
}

// handleTrustListCommand lists this guild's sources of truth.
func handleTrustListCommand(ctx context.Context, bot *telego.Bot, chatID int64) error {
	ids := deps.Trust.List(chatID)
	if len(ids) == 0 {
		return replyHTML(ctx, bot, chatID, "<b>Sources of truth</b>\nNo sources of truth configured yet; bans in this guild are not synced.")
	}

	var b strings.Builder
	b.WriteString("<b>Sources of truth</b>\nOnly bans and unbans from these users are synced:\n")
	for _, id := range ids {
		fmt.Fprintf(&b, "• <a href=\"tg://user?id=%d\">%d</a>\n", id, id)
	}
	return replyHTML(ctx, bot, chatID, b.String())
}

// trustTargetID resolves the target of a trust command from the argument or
// the replied-to message.
func trustTargetID(message telego.Message, args []string) (int64, error) {
	if len(args) == 1 {
		return strconv.ParseInt(args[0], 10, 64)
	}
	if message.ReplyToMessage != nil && message.ReplyToMessage.From != nil {
		return message.ReplyToMessage.From.ID, nil
	}
	return 0, fmt.Errorf("no target user")
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
