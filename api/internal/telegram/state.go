package telegram

import (
	"rock-id/api/internal/action"
	"rock-id/api/internal/ui"
)

// chatSession: контроллер распознавания для одного чата.
type chatSession struct {
	engine string
	ctrl   *ui.Controller
}

func (r *Router) session(chatID int64) *chatSession {
	if v, ok := r.sessions.Load(chatID); ok {
		return v.(*chatSession)
	}
	act, err := r.Actions.Get("")
	if err != nil {
		// Set без движков не собирается в main, сюда не попадаем
		panic(err)
	}
	v, _ := r.sessions.LoadOrStore(chatID, r.newSession(chatID, act))
	return v.(*chatSession)
}

func (r *Router) newSession(chatID int64, act *action.Action) *chatSession {
	notify := ui.NotifierFunc(func(n ui.Notification) {
		r.send(chatID, "⚠️ "+n.Title+"\n"+n.Description)
	})
	return &chatSession{engine: act.Engine(), ctrl: ui.NewController(act, notify)}
}
