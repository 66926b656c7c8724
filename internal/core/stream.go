package core

// TextStream delivers generated text fragments from a producer goroutine to
// a single accumulation loop. Err is valid only after Chunks is closed; the
// close of the channel publishes the error to the consumer.
type TextStream struct {
	ch  chan string
	err error
}

func newTextStream() *TextStream {
	return &TextStream{ch: make(chan string)}
}

// Chunks yields text fragments in delivery order until the stream ends.
func (t *TextStream) Chunks() <-chan string {
	return t.ch
}

// Err reports how the stream ended. nil means normal exhaustion.
func (t *TextStream) Err() error {
	return t.err
}

func (t *TextStream) close(err error) {
	t.err = err
	close(t.ch)
}

// failedStream returns a stream that ends immediately with err. Used when a
// request cannot even be initiated.
func failedStream(err error) *TextStream {
	ts := newTextStream()
	ts.close(err)
	return ts
}
