package events

import "context"

// Handler procesa un mensaje crudo de un topic. El contrato de errores:
//
//   - nil: el mensaje se ackea.
//   - ErrMalformed (wrapped o no): el mensaje se ackea y se descarta,
//     nunca se reintenta.
//   - cualquier otro error: el mensaje NO se ackea y el transporte lo
//     reentrega (fallo transitorio).
type Handler func(ctx context.Context, payload []byte) error

// Bus abstrae el transporte de eventos.
type Bus interface {
	// Publish encola el mensaje de forma durable. Si Publish retorna nil,
	// el mensaje está comprometido en el canal.
	Publish(ctx context.Context, topic string, payload []byte) error

	// Subscribe consume el topic dentro del consumer group dado, invocando
	// h por cada mensaje. Bloquea hasta que ctx se cancela.
	Subscribe(ctx context.Context, topic, group string, h Handler) error

	// Ping verifica la conexión al transporte.
	Ping(ctx context.Context) error

	Close() error
}
