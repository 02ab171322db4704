package repository

import "context"

// RenderProber загружает изображение карты. Любая ошибка - сбой загрузки,
// причина (ключ, сеть, таймаут) не различается.
type RenderProber interface {
	Probe(ctx context.Context, url string) error
}
