package bot

import (
	"context"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ostrin/searchbot/internal/domain/plans"
	"github.com/ostrin/searchbot/internal/domain/quota"
)

// Catalog — что боту нужно от каталога тарифов.
type Catalog interface {
	ListActive(ctx context.Context) ([]plans.Plan, error)
}

type Bot struct {
	api       *tgbotapi.BotAPI
	log       *slog.Logger
	engine    *quota.Engine
	plans     Catalog
	adminChat int64
}

func New(api *tgbotapi.BotAPI, log *slog.Logger, engine *quota.Engine, catalog Catalog, adminChatID int64) *Bot {
	return &Bot{api: api, log: log, engine: engine, plans: catalog, adminChat: adminChatID}
}

func (b *Bot) Run(ctx context.Context, timeoutSec int) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = timeoutSec
	updates := b.api.GetUpdatesChan(u)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case upd := <-updates:
			if upd.Message != nil {
				b.onMessage(ctx, upd)
			}
		}
	}
}

func (b *Bot) send(msg tgbotapi.Chattable) {
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send failed", "err", err)
	}
}

func (b *Bot) reply(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}
