package sessions

import "context"

// KV is a durable key-value storage partitioned by namespace. Each browser owns one namespace,
// so a namespace plays the role a browser's local storage plays for a single-page app.
type KV interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, namespace, key string) (string, bool, error)
	Set(ctx context.Context, namespace, key, value string) error
	// Delete removes keys; missing keys are not an error.
	Delete(ctx context.Context, namespace string, keys ...string) error
}
