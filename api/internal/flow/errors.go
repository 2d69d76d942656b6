package flow

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingInput: изображение не передано вовсе.
	ErrMissingInput = errors.New("missing input")
	// ErrValidation: вход или ответ модели не соответствует контракту.
	ErrValidation = errors.New("validation error")
	// ErrEmptyResult: модель ответила, но без разбираемого структурированного вывода.
	ErrEmptyResult = errors.New("empty result")
	// ErrTransport: сбой вызова внешней модели (сеть, авторизация, лимиты).
	ErrTransport = errors.New("transport error")
)

func validationf(op, format string, args ...any) error {
	return fmt.Errorf("%s: %w: %s", op, ErrValidation, fmt.Sprintf(format, args...))
}

func emptyResultf(op, format string, args ...any) error {
	return fmt.Errorf("%s: %w: %s", op, ErrEmptyResult, fmt.Sprintf(format, args...))
}

// TransportError оборачивает ошибку движка. Текст ошибки отдаётся как есть.
type TransportError struct {
	Engine string
	Err    error
}

// Transport wraps err unless it already carries a flow error kind.
func Transport(engine string, err error) error {
	if err == nil {
		return nil
	}
	var te *TransportError
	if errors.As(err, &te) || errors.Is(err, ErrValidation) || errors.Is(err, ErrEmptyResult) {
		return err
	}
	return &TransportError{Engine: engine, Err: err}
}

func (e *TransportError) Error() string {
	if e.Engine == "" {
		return e.Err.Error()
	}
	return e.Engine + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() []error { return []error{ErrTransport, e.Err} }
