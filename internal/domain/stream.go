package domain

import (
	"time"

	"github.com/google/uuid"
)

// Стрим, в который публикуются выбранные локации (формы бронирования,
// построители ссылок на такси читают его)
const (
	StreamLocationSelected = "stream:location:selected"
)

// LocationSelectedEvent - событие выбора локации в сессии карты
type LocationSelectedEvent struct {
	EventID    uuid.UUID        `json:"event_id"`
	SessionID  uuid.UUID        `json:"session_id"`
	Location   ResolvedLocation `json:"location"`
	OccurredAt time.Time        `json:"occurred_at"`
}
