package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ostrin/searchbot/internal/domain/quota"
)

func (b *Bot) onMessage(ctx context.Context, upd tgbotapi.Update) {
	msg := upd.Message
	chatID := msg.Chat.ID
	userID := msg.From.ID

	switch msg.Command() {
	case "start":
		b.reply(chatID, "Привет! Отправьте /search <запрос> для поиска.\n/limit — ваш дневной лимит, /plans — тарифы.")
	case "search":
		b.onSearch(ctx, chatID, userID, msg.CommandArguments())
	case "limit":
		b.onLimit(ctx, chatID, userID)
	case "plans":
		b.onPlans(ctx, chatID)
	default:
		b.reply(chatID, "Не понимаю. Команды: /search, /limit, /plans")
	}
}

func (b *Bot) onSearch(ctx context.Context, chatID, userID int64, query string) {
	if strings.TrimSpace(query) == "" {
		b.reply(chatID, "Укажите запрос: /search <запрос>")
		return
	}

	res, err := b.engine.Consume(ctx, userID)
	if err != nil {
		if errors.Is(err, quota.ErrConflict) {
			b.reply(chatID, "Сервис занят, попробуйте ещё раз через пару секунд.")
			return
		}
		b.log.Error("consume failed", "user_id", userID, "err", err)
		b.reply(chatID, "Что-то пошло не так, попробуйте позже.")
		return
	}
	if !res.Allowed {
		b.reply(chatID, "Дневной лимит поисков исчерпан. Новые попытки — завтра, или смените тариф: /plans")
		return
	}

	// сам поиск выполняет внешний раннер; бот отвечает за списание лимита
	b.reply(chatID, fmt.Sprintf("Поиск запущен. Осталось попыток сегодня: %d", res.Remaining))
}

func (b *Bot) onLimit(ctx context.Context, chatID, userID int64) {
	s, err := b.engine.Snapshot(ctx, userID)
	if err != nil {
		b.log.Error("snapshot failed", "user_id", userID, "err", err)
		b.reply(chatID, "Не удалось получить данные, попробуйте позже.")
		return
	}
	b.reply(chatID, fmt.Sprintf(
		"Тариф: %s (%s)\nЛимит в день: %d\nИспользовано сегодня: %d\nОсталось: %d",
		s.PlanTitle, s.PlanCode, s.DailyLimit, s.UsedToday, s.RemainingToday,
	))
}

func (b *Bot) onPlans(ctx context.Context, chatID int64) {
	list, err := b.plans.ListActive(ctx)
	if err != nil {
		b.log.Error("list plans failed", "err", err)
		b.reply(chatID, "Не удалось получить тарифы, попробуйте позже.")
		return
	}
	if len(list) == 0 {
		b.reply(chatID, "Тарифы пока не настроены.")
		return
	}

	var sb strings.Builder
	sb.WriteString("Доступные тарифы:\n")
	for _, p := range list {
		fmt.Fprintf(&sb, "\n%s — %d поисков в день, %.2f ₽ / %s", p.Title, p.DailyLimit, p.Price, p.LabelRU)
	}
	b.reply(chatID, sb.String())
}
