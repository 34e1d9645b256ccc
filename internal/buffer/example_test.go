package buffer_test

import (
	"errors"
	"fmt"
	"log"

	"github.com/gitter-badger/ocl/internal/buffer"
	"github.com/gitter-badger/ocl/internal/gpu"
)

// Example of building, mapping and reading a buffer
func Example() {
	rt := gpu.NewHostRuntime(gpu.HostOptions{})
	defer rt.Close()

	q, err := gpu.NewQueue(rt, 0)
	if err != nil {
		log.Fatal(err)
	}
	defer q.Release()

	buf, err := buffer.New[float32](q, nil, gpu.Dims1(8), nil)
	if err != nil {
		log.Fatal(err)
	}
	defer buf.Release()

	if err := buf.Cmd().Offset(4).Fill(1.5, nil).Enq(); !errors.Is(err, buffer.ErrLengthExceedsBuffer) {
		log.Fatal("fill past the end was accepted")
	}
	if err := buf.Cmd().Offset(4).Fill(1.5, buffer.Some(4)).Enq(); err != nil {
		log.Fatal(err)
	}

	mm, err := buf.Cmd().Map(buffer.Some(gpu.MapWrite), buffer.Some(2)).EnqMap()
	if err != nil {
		log.Fatal(err)
	}
	if err := mm.With(func(s []float32) { s[0] = 3 }); err != nil {
		log.Fatal(err)
	}
	if err := mm.Release(); err != nil {
		log.Fatal(err)
	}

	out := make([]float32, 8)
	if err := buf.Read(out).Enq(); err != nil {
		log.Fatal(err)
	}
	fmt.Println(out)
	// Output: [3 0 0 0 1.5 1.5 1.5 1.5]
}
