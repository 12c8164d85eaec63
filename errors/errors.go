package errors

import "fmt"

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")

	// ErrUnknownKey is returned when reading a state key that was never set.
	ErrUnknownKey = fmt.Errorf("key not found in state")

	// ErrSchemaViolation rejects an update touching a key outside the agreed
	// state schema. The whole update is refused, never a part of it.
	ErrSchemaViolation = fmt.Errorf("key not in state schema")

	// ErrInvalidSelection means the selection policy named neither an
	// eligible role nor the termination sentinel.
	ErrInvalidSelection = fmt.Errorf("selection matched no eligible role")

	// ErrMalformedStateReport means a state report could not be turned into a
	// schema-conformant object within the retry budget.
	ErrMalformedStateReport = fmt.Errorf("malformed state report")

	ErrEmptyScenario = fmt.Errorf("scenario has no roles")
)
