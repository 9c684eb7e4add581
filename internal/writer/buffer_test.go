package writer

import (
	"sync"
	"testing"

	"github.com/02loveslollipop/tswater/internal/codec"
)

func TestWriteBuffer_DetachEmpties(t *testing.T) {
	b := NewBuffer()
	if rows := b.Detach(); rows != nil {
		t.Fatalf("Detach on empty buffer = %v, want nil", rows)
	}

	b.Append(codec.RawRow{StationID: "1"})
	b.AppendBatch([]codec.RawRow{{StationID: "2"}, {StationID: "3"}})

	rows := b.Detach()
	if len(rows) != 3 || rows[0].StationID != "1" || rows[2].StationID != "3" {
		t.Errorf("Detach = %v", rows)
	}
	if b.Len() != 0 {
		t.Errorf("Len after detach = %d", b.Len())
	}

	// The detached slice is not shared with later appends.
	b.Append(codec.RawRow{StationID: "4"})
	if rows[0].StationID != "1" {
		t.Error("detached rows were modified by a later append")
	}
}

func TestWriteBuffer_BatchesAreNeverSplit(t *testing.T) {
	b := NewBuffer()
	const batches, size = 50, 20

	var wg sync.WaitGroup
	var mu sync.Mutex
	var detached [][]codec.RawRow

	for i := 0; i < batches; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			batch := make([]codec.RawRow, size)
			for j := range batch {
				batch[j] = codec.RawRow{StationID: string(rune('A' + i%26)), WaterStage: string(rune('0' + j%10))}
			}
			b.AppendBatch(batch)
		}(i)
		go func() {
			defer wg.Done()
			if rows := b.Detach(); rows != nil {
				mu.Lock()
				detached = append(detached, rows)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if rows := b.Detach(); rows != nil {
		detached = append(detached, rows)
	}

	total := 0
	for _, rows := range detached {
		if len(rows)%size != 0 {
			t.Errorf("detached %d rows, not a whole number of batches", len(rows))
		}
		total += len(rows)
	}
	if total != batches*size {
		t.Errorf("total detached = %d, want %d", total, batches*size)
	}
}
