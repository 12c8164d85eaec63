//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"agent-lab/domain"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Completer is the opaque text-generation backend. It may fail transiently;
// retrying or failing the turn is the caller's responsibility.
type Completer interface {
	Complete(ctx context.Context, messages []domain.ChatMessage) (string, error)
}

// StateStore is the schema-validated shared state of one run. Implementations
// exist for the local lock-backed store and the HTTP replica; participant
// logic never branches on which one it was handed.
type StateStore interface {
	// Get returns the committed value for key, or errors.ErrUnknownKey if the
	// key has never been set.
	Get(key string) (any, error)
	// Set commits a single key, or fails with errors.ErrSchemaViolation.
	Set(key string, value any) error
	// Update commits every key or none: if any key is outside the schema the
	// prior record is left fully intact.
	Update(updates map[string]any) error
}
