package buffer

// Unbounded creates a channel buffer that grows as needed.
// It returns a write-only channel to feed data in, and a read-only channel to read data out.
//
// initialCap: The starting size of the backing slice.
// hardLimit: The maximum number of items to buffer before dropping the oldest.
// A hardLimit <= 0 never drops.
// onDrop: Called with each dropped item, may be nil.
//
// Closing the input does not lose data: everything still buffered is delivered
// before the output closes.
//
// Usage:
//
//	in, out := buffer.Unbounded[irc.Message](256, 0, nil)
//	in <- msg
//	msg := <-out
func Unbounded[T any](initialCap int, hardLimit int, onDrop func(T)) (chan<- T, <-chan T) {
	in := make(chan T, 16)  // Small input buffer to reduce context switching
	out := make(chan T, 16) // Small output buffer

	go func() {
		defer close(out)

		queue := make([]T, 0, initialCap)

		for {
			var next T
			var downstream chan T

			// Enable the 'out' case only if we have data to send.
			if len(queue) > 0 {
				next = queue[0]
				downstream = out
			}

			select {
			case val, ok := <-in:
				if !ok {
					for _, item := range queue {
						out <- item
					}
					return
				}

				if hardLimit > 0 && len(queue) >= hardLimit {
					if onDrop != nil {
						onDrop(queue[0])
					}
					var zero T
					queue[0] = zero
					queue = queue[1:]
				}

				queue = append(queue, val)

			case downstream <- next:
				var zero T
				queue[0] = zero
				queue = queue[1:]
			}
		}
	}()

	return in, out
}
