package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// RenderPhase - состояние контроллера отрисовки
type RenderPhase string

const (
	PhaseIdle      RenderPhase = "idle"
	PhaseRendering RenderPhase = "rendering"
	PhaseSuccess   RenderPhase = "success"
	PhaseFailed    RenderPhase = "failed"
)

// AttemptToken идентифицирует попытку отрисовки. Seq монотонно растёт
// в пределах одного контроллера, поэтому колбэки устаревших попыток
// (в том числе от предыдущего Start) можно отбросить.
type AttemptToken struct {
	ProviderID ProviderID `json:"provider_id"`
	Seq        uint64     `json:"seq"`
}

func (t AttemptToken) String() string {
	return fmt.Sprintf("%s:%d", t.ProviderID, t.Seq)
}

// ParseAttemptToken разбирает строку вида "provider:seq"
func ParseAttemptToken(s string) (AttemptToken, error) {
	idx := strings.LastIndex(s, ":")
	if idx <= 0 || idx == len(s)-1 {
		return AttemptToken{}, fmt.Errorf("malformed attempt token %q", s)
	}
	seq, err := strconv.ParseUint(s[idx+1:], 10, 64)
	if err != nil {
		return AttemptToken{}, fmt.Errorf("malformed attempt token %q: %w", s, err)
	}
	return AttemptToken{ProviderID: ProviderID(s[:idx]), Seq: seq}, nil
}

// RenderAttempt - одна попытка отрисовки карты конкретным провайдером
type RenderAttempt struct {
	Token      AttemptToken `json:"token"`
	ProviderID ProviderID   `json:"provider_id"`
	URL        string       `json:"url"`
	Center     GeoPoint     `json:"center"`
	Zoom       int          `json:"zoom"`
}

// FallbackState - состояние цепочки провайдеров для одного вида карты
type FallbackState struct {
	AttemptedProviderIDs []ProviderID `json:"attempted_provider_ids"`
	CurrentProviderID    ProviderID   `json:"current_provider_id"`
	AttemptCount         int          `json:"attempt_count"`
	Exhausted            bool         `json:"exhausted"`
	Phase                RenderPhase  `json:"phase"`
}
