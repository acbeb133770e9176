package handler

import (
	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"

	"crossban/internal/config"
	"crossban/internal/crash"
	"crossban/internal/gateway"
	"crossban/internal/logger"
	"crossban/internal/models"
	"crossban/internal/storage"
	"crossban/internal/sync"
)

// Deps wires the handler layer to the engine and its collaborators.
type Deps struct {
	Config   *config.Config
	Store    *storage.Store
	Trust    *models.TrustIndex
	Filter   *sync.TrustFilter
	Engine   *sync.Engine
	Reviewer *sync.Reviewer
	Gateway  gateway.Gateway
}

var deps Deps

// Initialize stores the handler dependencies.
func Initialize(d Deps) {
	deps = d
}

// SetupHandlers configures all bot message and update handlers
func SetupHandlers(bh *th.BotHandler, bot *telego.Bot) {
	bh.HandleMessage(func(ctx *th.Context, message telego.Message) error {
		defer crash.RecoverWithStack("handler.message")
		handled, err := dispatchCommand(ctx, bot, message)
		if handled {
			return err
		}
		return nil
	})

	bh.Handle(func(ctx *th.Context, update telego.Update) error {
		defer crash.RecoverWithStack("handler.chat_member")
		return handleChatMemberUpdate(ctx, bot, update)
	}, th.AnyChatMember())

	bh.Handle(func(ctx *th.Context, update telego.Update) error {
		defer crash.RecoverWithStack("handler.my_chat_member")
		return handleMyChatMemberUpdate(ctx, update)
	}, th.AnyMyChatMember())

	bh.HandleCallbackQuery(func(ctx *th.Context, query telego.CallbackQuery) error {
		defer crash.RecoverWithStack("handler.callback")
		return HandleCallbackQuery(ctx, bot, query)
	})
}

// handleChatMemberUpdate turns chat member status transitions into ban
// notifications and hands them to the engine after trust filtering.
func handleChatMemberUpdate(ctx *th.Context, bot *telego.Bot, update telego.Update) error {
	cm := update.ChatMember
	if cm == nil {
		return nil
	}

	guildID := cm.Chat.ID
	target := cm.NewChatMember.MemberUser()
	oldStatus := cm.OldChatMember.MemberStatus()
	newStatus := cm.NewChatMember.MemberStatus()

	var action models.NoticeAction
	switch {
	case newStatus == telego.MemberStatusBanned && oldStatus != telego.MemberStatusBanned:
		action = models.BanAdded
	case oldStatus == telego.MemberStatusBanned && newStatus != telego.MemberStatusBanned:
		action = models.BanRemoved
	default:
		return nil
	}

	notice := models.Notice{
		Action:     action,
		GuildID:    guildID,
		ExecutorID: cm.From.ID,
		TargetID:   target.ID,
	}
	if !deps.Filter.ShouldProcess(notice) {
		logger.Debugf("Ignoring %s for user %d in guild %d (executor %d not a source of truth)",
			action, target.ID, guildID, cm.From.ID)
		return nil
	}

	// Federated guilds get their config row on first sight.
	if _, err := deps.Store.GuildConfigs.GetOrCreate(guildID); err != nil {
		logger.Errorf("Error ensuring guild config for %d: %v", guildID, err)
	}

	if action == models.BanAdded {
		// Telegram's ban endpoint has no reason field, so notifications
		// never carry one.
		return deps.Engine.HandleBan(ctx.Context(), sync.BanNotice{
			UserID:        target.ID,
			SourceGuildID: guildID,
			SourceUserID:  cm.From.ID,
			Reason:        "Unknown Reason",
		})
	}
	return deps.Engine.RemoveBan(ctx.Context(), sync.UnbanNotice{
		UserID:        target.ID,
		SourceGuildID: guildID,
		ExecutorID:    cm.From.ID,
	})
}

// handleMyChatMemberUpdate tracks the bot's own membership: joining a
// federated guild creates its config, leaving removes it.
func handleMyChatMemberUpdate(ctx *th.Context, update telego.Update) error {
	mcm := update.MyChatMember
	if mcm == nil {
		return nil
	}

	guildID := mcm.Chat.ID
	if !deps.Config.Federation.IsFederated(guildID) {
		logger.Debugf("Bot membership changed in non-federated chat %d, ignoring", guildID)
		return nil
	}

	switch mcm.NewChatMember.MemberStatus() {
	case telego.MemberStatusLeft, telego.MemberStatusBanned:
		logger.Infof("Bot removed from guild %d, dropping its config", guildID)
		if err := deps.Store.GuildConfigs.Delete(guildID); err != nil {
			logger.Errorf("Error deleting guild config for %d: %v", guildID, err)
		}
	default:
		if _, err := deps.Store.GuildConfigs.GetOrCreate(guildID); err != nil {
			logger.Errorf("Error creating guild config for %d: %v", guildID, err)
		} else {
			logger.Infof("Bot active in federated guild %d", guildID)
		}
	}
	return nil
}
