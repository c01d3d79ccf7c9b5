package sequential_test

import (
	"testing"

	"github.com/AOSIP-old/platform-frameworks-base/broadcast/executors/sequential"

	"github.com/stretchr/testify/assert"
)

func TestRunsInOrder(t *testing.T) {
	assert := assert.New(t)

	e := sequential.NewExecutor("test-seq", 64)

	var got []int
	for i := 0; i < 20; i++ {
		i := i
		e.Execute(func() {
			got = append(got, i)
		})
	}
	e.Shutdown()

	assert.Len(got, 20)
	for i, v := range got {
		assert.Equal(i, v)
	}
}
