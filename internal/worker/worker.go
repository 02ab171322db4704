// Package worker - фоновые задачи сервиса и управление их жизненным циклом.
package worker

import (
	"context"
)

// Worker - фоновая задача. Start блокирует до Stop или отмены ctx.
type Worker interface {
	Start(ctx context.Context) error
	Stop() error
	Name() string
}
