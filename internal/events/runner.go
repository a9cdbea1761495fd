package events

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// Subscription declara un topic a consumir y con cuántos workers.
type Subscription struct {
	Topic   string
	Handler Handler
	Workers int
}

// Run levanta todos los consumidores declarados y bloquea hasta que ctx se
// cancela o un consumidor retorna un error no-cancelación. Cada worker corre
// su propio Subscribe; la semántica de grupo del Bus reparte los mensajes.
func Run(ctx context.Context, bus Bus, group string, subs ...Subscription) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, sub := range subs {
		workers := sub.Workers
		if workers <= 0 {
			workers = 1
		}
		for i := 0; i < workers; i++ {
			s := sub
			g.Go(func() error {
				err := bus.Subscribe(ctx, s.Topic, group, s.Handler)
				if errors.Is(err, context.Canceled) || ctx.Err() != nil {
					return nil
				}
				return err
			})
		}
	}
	return g.Wait()
}
