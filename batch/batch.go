// Package batch обрабатывает списки пачками: элементы одной пачки идут параллельно,
// следующая пачка стартует только после завершения предыдущей и паузы между ними.
package batch

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Runner описывает размер пачки и паузу между пачками.
//
// OnBatch вызывается после каждой пачки с её ошибкой (nil, если все элементы успешны).
// Возврат false останавливает обход, Run при этом возвращает nil.
// Без OnBatch первая ошибка пачки прерывает обход и возвращается из Run.
type Runner[T any] struct {
	Size    int
	Pause   time.Duration
	OnBatch func(items []T, err error) bool
}

func (r Runner[T]) Run(ctx context.Context, items []T, fn func(ctx context.Context, item T) error) error {
	for i, chunk := range Split(items, r.Size) {
		if i > 0 && r.Pause > 0 {
			if err := sleep(ctx, r.Pause); err != nil {
				return err
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		g, gCtx := errgroup.WithContext(ctx)
		for _, item := range chunk {
			g.Go(func() error {
				return fn(gCtx, item)
			})
		}
		err := g.Wait()

		if r.OnBatch == nil {
			if err != nil {
				return err
			}
			continue
		}
		if !r.OnBatch(chunk, err) {
			return nil
		}
	}
	return nil
}

// Split режет items на пачки по size элементов. size <= 0 - одна пачка.
func Split[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if size <= 0 || size >= len(items) {
		return [][]T{items}
	}
	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end])
	}
	return chunks
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
