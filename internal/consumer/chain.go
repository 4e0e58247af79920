package consumer

import "context"

// Chain runs handlers in order and stops at the first error, including
// ErrAlreadyProcessed.
func Chain(handlers ...Handler) Handler {
	return HandlerFunc(func(ctx context.Context, msg Message) error {
		for _, h := range handlers {
			if err := h.Handle(ctx, msg); err != nil {
				return err
			}
		}
		return nil
	})
}
