// Package prefs stores user preference flags through an injected
// key/value adapter.
package prefs

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/PratikDhanave/intake-edge/internal/kvstore"
)

// Known preference keys.
const (
	KeyFontScale              = "font_scale"
	KeyHighContrast           = "high_contrast"
	KeyInstallPromptDismissed = "install_prompt_dismissed"
	KeyAssistantConsent       = "assistant_consent"
)

// Defaults returned when a key was never set.
var Defaults = map[string]string{
	KeyFontScale:              "1",
	KeyHighContrast:           "false",
	KeyInstallPromptDismissed: "false",
	KeyAssistantConsent:       "false",
}

// Store reads and writes preference values.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// KV is a Store over a kvstore.Store. Keys are namespaced with "pref:".
type KV struct {
	kv kvstore.Store
}

// New returns a preference store persisting into kv.
func New(kv kvstore.Store) *KV {
	return &KV{kv: kv}
}

// Get returns the stored value. When nothing is stored it returns the
// default (if any) and ok=false.
func (p *KV) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := p.kv.Get(ctx, "pref:"+key)
	if errors.Is(err, kvstore.ErrNotFound) {
		return Defaults[key], false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (p *KV) Set(ctx context.Context, key, value string) error {
	return p.kv.Set(ctx, "pref:"+key, value)
}

// FontScale returns the font scale multiplier.
func FontScale(ctx context.Context, s Store) (float64, error) {
	v, _, err := s.Get(ctx, KeyFontScale)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 1, nil
	}
	return f, nil
}

// SetFontScale stores the font scale multiplier. Valid range is 0.5 to 2.
func SetFontScale(ctx context.Context, s Store, scale float64) error {
	if scale < 0.5 || scale > 2 {
		return fmt.Errorf("font scale %.2f out of range [0.5, 2]", scale)
	}
	return s.Set(ctx, KeyFontScale, strconv.FormatFloat(scale, 'f', -1, 64))
}

// Flag reads a boolean preference. Unparseable values read as false.
func Flag(ctx context.Context, s Store, key string) (bool, error) {
	v, _, err := s.Get(ctx, key)
	if err != nil {
		return false, err
	}
	b, _ := strconv.ParseBool(v)
	return b, nil
}

// SetFlag stores a boolean preference.
func SetFlag(ctx context.Context, s Store, key string, value bool) error {
	return s.Set(ctx, key, strconv.FormatBool(value))
}
