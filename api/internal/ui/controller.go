package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"sync"

	"rock-id/api/internal/action"
	"rock-id/api/internal/flow"
	"rock-id/api/internal/util"
)

type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateResult  State = "result"
	StateError   State = "error"
)

var (
	ErrNoSelection = errors.New("no image selected")
	ErrBusy        = errors.New("identification already in progress")
	ErrEmptyFile   = errors.New("selected file is empty")
)

const (
	TitleNoSelection = "No Image Selected"
	DescNoSelection  = "Please select an image file to identify."
	TitleFailed      = "Identification Failed"
)

// Notification: всплывающее уведомление (toast).
type Notification struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Destructive bool   `json:"destructive"`
}

type Notifier interface {
	Notify(n Notification)
}

type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// Identifier: граница действия; *action.Action её реализует.
type Identifier interface {
	IdentifyRock(ctx context.Context, imageDataURI string) action.Outcome
}

// Controller держит состояние одного экрана распознавания.
// Мьютекс не удерживается во время удалённого вызова.
type Controller struct {
	mu      sync.Mutex
	act     Identifier
	notify  Notifier
	file    string
	preview string
	result  *flow.Identification
	errMsg  string
	loading bool
	// gen растёт при каждом Select/Clear; исход устаревшей отправки отбрасывается
	gen      uint64
	onChange func(View)
}

func NewController(act Identifier, notify Notifier) *Controller {
	if notify == nil {
		notify = NotifierFunc(func(Notification) {})
	}
	return &Controller{act: act, notify: notify}
}

// OnChange регистрирует колбэк, который Submit вызывает при входе в loading и по завершении.
func (c *Controller) OnChange(fn func(View)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

func (c *Controller) changed() {
	c.mu.Lock()
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn(c.View())
	}
}

// Select загружает файл в превью и сбрасывает прошлый результат и ошибку.
func (c *Controller) Select(name, mimeType string, data []byte) error {
	if len(data) == 0 {
		return ErrEmptyFile
	}
	preview := util.EncodeDataURI(mimeType, mime.TypeByExtension(filepath.Ext(name)), data)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.file = name
	c.preview = preview
	c.result = nil
	c.errMsg = ""
	c.gen++
	return nil
}

func (c *Controller) SelectFile(name string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	return c.Select(name, "", data)
}

// SelectDataURI принимает уже закодированное превью (браузер, websocket).
func (c *Controller) SelectDataURI(name, dataURI string) error {
	d, err := util.ParseDataURI(dataURI)
	if err != nil {
		return err
	}
	return c.Select(name, d.MIME, d.Data)
}

// Submit отправляет выбранное изображение. Без выбора: уведомление и ErrNoSelection.
// Повторная отправка во время загрузки отклоняется с ErrBusy.
func (c *Controller) Submit(ctx context.Context) (action.Outcome, error) {
	c.mu.Lock()
	if c.loading {
		c.mu.Unlock()
		return action.Outcome{}, ErrBusy
	}
	if c.file == "" || c.preview == "" {
		c.mu.Unlock()
		c.notify.Notify(Notification{Title: TitleNoSelection, Description: DescNoSelection, Destructive: true})
		return action.Outcome{}, ErrNoSelection
	}
	c.loading = true
	c.result = nil
	c.errMsg = ""
	preview, gen := c.preview, c.gen
	c.mu.Unlock()
	c.changed()

	res := c.act.IdentifyRock(ctx, preview)

	c.mu.Lock()
	c.loading = false
	stale := c.gen != gen
	if !stale {
		if res.Success && res.Data != nil && res.Data.Identification != nil {
			id := *res.Data.Identification
			c.result = &id
		} else {
			c.errMsg = res.Error
			if c.errMsg == "" {
				c.errMsg = action.MsgNoResult
			}
		}
	}
	errMsg := c.errMsg
	c.mu.Unlock()

	if !stale && errMsg != "" {
		c.notify.Notify(Notification{Title: TitleFailed, Description: errMsg, Destructive: true})
	}
	c.changed()
	return res, nil
}

// Clear сбрасывает файл, превью, результат и ошибку. Доступен всегда.
func (c *Controller) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.file = ""
	c.preview = ""
	c.result = nil
	c.errMsg = ""
	c.gen++
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller) stateLocked() State {
	switch {
	case c.loading:
		return StateLoading
	case c.result != nil:
		return StateResult
	case c.errMsg != "":
		return StateError
	default:
		return StateIdle
	}
}

func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := View{
		State:     c.stateLocked(),
		FileName:  c.file,
		Preview:   c.preview,
		Loading:   c.loading,
		CanSubmit: c.file != "" && !c.loading,
		Error:     c.errMsg,
	}
	if c.result != nil {
		r := *c.result
		v.Result = &r
		v.SimilarityLabel = SimilarityLabel(r.SimilarityPercentage)
	}
	return v
}
