package cache

type hitResult[T any] struct {
	data    T
	valid   bool
	claimed bool
}

// Cache stores computed values by key. A missing key is claimed by the first caller,
// who is then responsible for either setting or deleting it.
type Cache[T any] interface {
	getOrClaim(key string) hitResult[T]
	set(key string, data T)
	delete(key string)
	wait()
}
