package navigator

import (
	"errors"
	"fmt"

	"github.com/andresg0412/waiwahost-plataforma/internal/domain/grid"
)

var (
	ErrStaleWindow      = errors.New("navigator: stale window")
	ErrInvalidDirection = errors.New("navigator: direction must be +1 or -1")
	ErrInvalidPeriod    = errors.New("navigator: invalid period")
)

// FetchError is what the view carries when loading a window failed.
type FetchError struct {
	Window grid.Window
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("navigator: fetch %s: %v", e.Window.Signature(), e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// StaleWindowError describes a response that arrived after the window moved
// on. It is logged and dropped, never put in the view.
type StaleWindowError struct {
	Requested string
	Current   string
}

func (e *StaleWindowError) Error() string {
	return fmt.Sprintf("navigator: response for %s arrived while showing %s", e.Requested, e.Current)
}

func (e *StaleWindowError) Unwrap() error { return ErrStaleWindow }
