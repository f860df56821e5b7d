package player

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlusherWaitCoversEarlierJobs(t *testing.T) {
	var f flusher
	require.NoError(t, f.wait(context.Background()))

	release := make(chan struct{})
	var mu sync.Mutex
	var order []int
	for i := 1; i <= 3; i++ {
		f.enqueue(func() {
			if i == 1 {
				<-release
			}
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := f.wait(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	close(release)
	require.NoError(t, f.wait(context.Background()))
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2, 3}, order)
}
