// Package settings persists visual preferences and overlay layouts under the
// data directory. Payloads are whitelist-validated and size-capped before
// anything touches disk, since the render surface trusts what it reads back.
package settings

import (
	"encoding/json"
	"fmt"
)

// MaxSettingsBytes caps the serialized settings payload.
const MaxSettingsBytes = 4096

const maxStringLen = 64

// VoiceSettings controls the narration subsystem.
type VoiceSettings struct {
	Enabled   bool    `json:"enabled" doc:"Whether narration is enabled"`
	AutoSpeak *bool   `json:"autoSpeak,omitempty" doc:"Auto-narrate generated messages, nil means allowed"`
	Provider  *string `json:"provider,omitempty" doc:"Narration provider name"`
}

// VisualSettings is the persisted settings document.
type VisualSettings struct {
	Theme       *string        `json:"theme,omitempty" doc:"UI theme name"`
	AvatarIndex *int           `json:"avatarIndex,omitempty" doc:"Avatar selection 0-999"`
	Voice       *VoiceSettings `json:"voice,omitempty" doc:"Narration settings"`
}

// ValidateSettings checks a decoded JSON payload against the allowed shape
// and returns the typed settings. Any key outside {theme, avatarIndex, voice}
// is rejected, as is anything serializing over MaxSettingsBytes.
func ValidateSettings(raw map[string]any) (*VisualSettings, error) {
	if raw == nil {
		return nil, fmt.Errorf("settings must be a JSON object")
	}

	serialized, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("settings not serializable: %w", err)
	}
	if len(serialized) > MaxSettingsBytes {
		return nil, fmt.Errorf("settings exceed %d bytes", MaxSettingsBytes)
	}

	out := &VisualSettings{}
	for key, value := range raw {
		switch key {
		case "theme":
			s, ok := value.(string)
			if !ok {
				return nil, fmt.Errorf("theme must be a string")
			}
			if len(s) > maxStringLen {
				return nil, fmt.Errorf("theme exceeds %d characters", maxStringLen)
			}
			out.Theme = &s
		case "avatarIndex":
			idx, err := intValue(value)
			if err != nil {
				return nil, fmt.Errorf("avatarIndex must be an integer")
			}
			if idx < 0 || idx > 999 {
				return nil, fmt.Errorf("avatarIndex must be between 0 and 999")
			}
			out.AvatarIndex = &idx
		case "voice":
			vs, err := validateVoice(value)
			if err != nil {
				return nil, err
			}
			out.Voice = vs
		default:
			return nil, fmt.Errorf("unknown settings key %q", key)
		}
	}
	return out, nil
}

func validateVoice(value any) (*VoiceSettings, error) {
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("voice must be an object")
	}
	vs := &VoiceSettings{}
	for key, v := range obj {
		switch key {
		case "enabled":
			b, ok := v.(bool)
			if !ok {
				return nil, fmt.Errorf("voice.enabled must be a boolean")
			}
			vs.Enabled = b
		case "autoSpeak":
			b, ok := v.(bool)
			if !ok {
				return nil, fmt.Errorf("voice.autoSpeak must be a boolean")
			}
			vs.AutoSpeak = &b
		case "provider":
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("voice.provider must be a string")
			}
			if len(s) > maxStringLen {
				return nil, fmt.Errorf("voice.provider exceeds %d characters", maxStringLen)
			}
			vs.Provider = &s
		default:
			return nil, fmt.Errorf("unknown voice key %q", key)
		}
	}
	return vs, nil
}

// intValue accepts JSON numbers only when they carry no fractional part.
func intValue(v any) (int, error) {
	switch n := v.(type) {
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("not an integer")
		}
		return int(n), nil
	case int:
		return n, nil
	case json.Number:
		i, err := n.Int64()
		return int(i), err
	default:
		return 0, fmt.Errorf("not a number")
	}
}
