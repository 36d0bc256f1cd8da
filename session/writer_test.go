package session

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestWriter_Order(t *testing.T) {
	t.Parallel()

	w := newWriter(4)
	w.start(context.Background())

	var got []int
	var results []<-chan error
	for i := 0; i < 10; i++ {
		i := i
		results = append(results, w.submit(func(ctx context.Context) error {
			got = append(got, i)
			if i == 5 {
				return errors.New("write failed")
			}
			return nil
		}))
	}

	w.stop()

	if diff := cmp.Diff([]int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got); diff != "" {
		t.Errorf("mismatch (-want, +got):\n%s", diff)
	}

	for i, result := range results {
		err := <-result
		if (i == 5) != (err != nil) {
			t.Errorf("job %d: unexpected result %v", i, err)
		}
	}
}
