package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"rock-id/api/internal/ui"
	"rock-id/api/internal/util"
)

const (
	cbIdentify = "identify"
	cbClear    = "clear"
)

func makeSelectionKeyboard() tgbotapi.InlineKeyboardMarkup {
	identify := tgbotapi.NewInlineKeyboardButtonData("🔍 Identify", cbIdentify)
	clear := tgbotapi.NewInlineKeyboardButtonData("✖ Clear", cbClear)
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(identify, clear))
}

// FormatResult рендерит результат для чата; процент округлён как в веб-интерфейсе.
func FormatResult(v ui.View) string {
	if v.Result == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("🪨 Closest match: ")
	b.WriteString(v.Result.ClosestMatch)
	b.WriteString("\nSimilarity: ")
	b.WriteString(v.SimilarityLabel)
	if info := strings.TrimSpace(v.Result.Information); info != "" {
		b.WriteString("\n\n")
		b.WriteString(info)
	}
	return util.Truncate(b.String(), 3900)
}

func (r *Router) SendResult(chatID int64, v ui.View) {
	text := FormatResult(v)
	if text == "" {
		return
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✖ Clear", cbClear),
	))
	_, _ = r.Bot.Send(msg)
}

var httpc = &http.Client{Timeout: 60 * time.Second}

func download(ctx context.Context, url string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("download status %d: %s", resp.StatusCode, string(b))
	}
	if resp.ContentLength > limit {
		return nil, ErrFileTooLarge
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, ErrFileTooLarge
	}
	return data, nil
}
