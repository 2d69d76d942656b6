package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"rock-id/api/internal/action"
	"rock-id/api/internal/ui"
)

// Bot: часть *tgbotapi.BotAPI, которой пользуется роутер.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

type Router struct {
	Bot     Bot
	Actions *action.Set
	Log     *zap.Logger
	// Timeout на один запрос к модели.
	Timeout time.Duration
	// MaxSize: предел размера файла; <= 0 значит DefaultMaxSize.
	MaxSize int64
	// Fetch скачивает файл по прямой ссылке Telegram не больше limit байт; nil значит download.
	Fetch func(ctx context.Context, url string, limit int64) ([]byte, error)

	sessions sync.Map // chatID -> *chatSession
	wg       sync.WaitGroup
}

const DefaultMaxSize = 10 << 20

var ErrFileTooLarge = errors.New("file is too large")

func (r *Router) maxSize() int64 {
	if r.MaxSize <= 0 {
		return DefaultMaxSize
	}
	return r.MaxSize
}

func (r *Router) log() *zap.Logger {
	if r.Log == nil {
		return zap.NewNop()
	}
	return r.Log
}

func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.CallbackQuery != nil {
		r.handleCallback(ctx, *upd.CallbackQuery)
		return
	}
	if upd.Message == nil {
		return
	}
	msg := upd.Message
	cid := msg.Chat.ID

	if msg.IsCommand() {
		r.HandleCommand(ctx, msg)
		return
	}
	switch {
	case len(msg.Photo) > 0:
		ph := msg.Photo[len(msg.Photo)-1]
		r.acceptImage(ctx, cid, ph.FileID, int64(ph.FileSize), fmt.Sprintf("photo_%d.jpg", msg.MessageID), "image/jpeg")
	case msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "image/"):
		d := msg.Document
		r.acceptImage(ctx, cid, d.FileID, int64(d.FileSize), d.FileName, d.MimeType)
	default:
		r.send(cid, "Send me a photo of a rock or gem, then press Identify.")
	}
}

func (r *Router) HandleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	switch msg.Command() {
	case "start", "help":
		r.send(cid, "Send a photo of a rock or gem and I will try to identify it.\n"+
			"Commands: /identify, /clear, /engine [gemini|gpt]")
	case "health":
		r.send(cid, "✅ OK")
	case "identify":
		r.submit(ctx, cid)
	case "clear":
		r.session(cid).ctrl.Clear()
		r.send(cid, "Selection cleared.")
	case "engine":
		r.handleEngineCommand(cid, msg.CommandArguments())
	default:
		r.send(cid, "Unknown command")
	}
}

// handleEngineCommand: /engine без аргументов показывает текущий движок.
// Смена движка сбрасывает выбранное фото.
func (r *Router) handleEngineCommand(chatID int64, args string) {
	s := r.session(chatID)
	name := strings.ToLower(strings.TrimSpace(args))
	if name == "" {
		r.send(chatID, "Current engine: "+s.engine+
			"\nAvailable: "+strings.Join(r.Actions.Available(), " | ")+"\nUsage: /engine gemini")
		return
	}
	act, err := r.Actions.Get(name)
	if err != nil {
		r.send(chatID, "❌ "+err.Error())
		return
	}
	r.sessions.Store(chatID, r.newSession(chatID, act))
	r.send(chatID, "✅ Engine: "+act.Engine())
}

func (r *Router) handleCallback(ctx context.Context, cb tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}
	cid := cb.Message.Chat.ID
	_, _ = r.Bot.Request(tgbotapi.NewCallback(cb.ID, "")) // ack

	// убрать клавиатуру с сообщения
	edit := tgbotapi.NewEditMessageReplyMarkup(cid, cb.Message.MessageID, tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{},
	})
	_, _ = r.Bot.Send(edit)

	switch cb.Data {
	case cbIdentify:
		r.submit(ctx, cid)
	case cbClear:
		r.session(cid).ctrl.Clear()
		r.send(cid, "Selection cleared.")
	}
}

// acceptImage: size из апдейта, 0 если Telegram его не прислал.
func (r *Router) acceptImage(ctx context.Context, chatID int64, fileID string, size int64, name, mime string) {
	if size > r.maxSize() {
		r.SendError(chatID, ErrFileTooLarge)
		return
	}
	url, err := r.Bot.GetFileDirectURL(fileID)
	if err != nil {
		r.SendError(chatID, err)
		return
	}
	fetch := r.Fetch
	if fetch == nil {
		fetch = download
	}
	data, err := fetch(ctx, url, r.maxSize())
	if err != nil {
		r.SendError(chatID, err)
		return
	}
	if err := r.session(chatID).ctrl.Select(name, mime, data); err != nil {
		r.SendError(chatID, err)
		return
	}
	msg := tgbotapi.NewMessage(chatID, "Photo received. Press Identify to analyse it.")
	msg.ReplyMarkup = makeSelectionKeyboard()
	_, _ = r.Bot.Send(msg)
}

// submit запускает распознавание в фоне, чтобы не блокировать остальные чаты.
func (r *Router) submit(ctx context.Context, chatID int64) {
	s := r.session(chatID)
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 180 * time.Second
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()

		_, _ = r.Bot.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))
		res, err := s.ctrl.Submit(rctx)
		switch {
		case err == nil && res.Success:
			// после /clear или нового фото результат отброшен, показывать нечего
			if v := s.ctrl.View(); v.Result != nil {
				r.SendResult(chatID, v)
			}
		case err != nil && !errors.Is(err, ui.ErrNoSelection):
			// ErrNoSelection уже показан уведомлением
			r.send(chatID, "⏳ "+err.Error())
		}
	}()
}

// Wait дожидается фоновых распознаваний (тесты, остановка).
func (r *Router) Wait() { r.wg.Wait() }

func (r *Router) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := r.Bot.Send(msg); err != nil {
		r.log().Warn("telegram send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (r *Router) SendError(chatID int64, err error) {
	r.send(chatID, fmt.Sprintf("Error: %v", err))
}
