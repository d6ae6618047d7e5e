package sink

// SetChunkHook installs fn to run before every chunk and returns a function
// restoring the previous hook.
func SetChunkHook(fn func()) func() {
	prev := chunkHook
	chunkHook = fn
	return func() { chunkHook = prev }
}
