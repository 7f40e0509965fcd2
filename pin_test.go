package cyphercell

import (
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestBudget_PinUnpin(t *testing.T) {
	b := NewBudget(16, nil)
	assert.Equal(t, 16, b.Limit())

	first := make([]byte, 10)
	second := make([]byte, 6)
	third := make([]byte, 1)

	require.NoError(t, b.Pin(first))
	require.NoError(t, b.Pin(second))
	assert.Equal(t, 16, b.InUse())

	err := b.Pin(third)
	assert.True(t, errors.Is(err, ErrPinBudgetExhausted))
	assert.Equal(t, 16, b.InUse())

	require.NoError(t, b.Unpin(first))
	assert.Equal(t, 6, b.InUse())

	require.NoError(t, b.Pin(third))
	assert.Equal(t, 7, b.InUse())
}

func TestBudget_UnpinMoreThanReserved(t *testing.T) {
	b := NewBudget(8, nil)

	require.NoError(t, b.Pin(make([]byte, 2)))

	err := b.Unpin(make([]byte, 4))
	assert.EqualError(t, err, "unpin of 4 bytes exceeds 2 bytes pinned")
	assert.Equal(t, 2, b.InUse())
}

func TestBudget_UnpinMoreThanReservedStillDelegates(t *testing.T) {
	buf := make([]byte, 4)

	m := new(MockPinner)
	m.On("Unpin", buf).Return(errors.New("error from unpin")).Once()

	b := NewBudget(8, m)

	err := b.Unpin(buf)
	assert.EqualError(t, err, "error from unpin: unpin of 4 bytes exceeds 0 bytes pinned")
	assert.Equal(t, 0, b.InUse())

	m.AssertExpectations(t)
}

func TestBudget_Delegates(t *testing.T) {
	buf := []byte("secret")

	m := new(MockPinner)
	m.On("Pin", buf).Return(nil).Once()
	m.On("Unpin", buf).Return(nil).Once()

	b := NewBudget(64, m)

	require.NoError(t, b.Pin(buf))
	require.NoError(t, b.Unpin(buf))

	m.AssertExpectations(t)
}

func TestBudget_DelegateErrorDoesNotReserve(t *testing.T) {
	errPin := errors.New("error from pin")

	m := new(MockPinner)
	m.On("Pin", mock.Anything).Return(errPin)

	b := NewBudget(64, m)

	err := b.Pin(make([]byte, 8))
	assert.Equal(t, errPin, err)
	assert.Equal(t, 0, b.InUse())
}

func TestBudget_Concurrent(t *testing.T) {
	const workers = 16

	b := NewBudget(workers*8, nil)

	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			buf := make([]byte, 8)
			for j := 0; j < 100; j++ {
				if assert.NoError(t, b.Pin(buf)) {
					assert.NoError(t, b.Unpin(buf))
				}
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 0, b.InUse())
}

func TestDefaultPinner(t *testing.T) {
	c := New([]byte("secret"), WithPinner(DefaultPinner()))
	defer c.Close()

	s, err := c.Reveal()
	require.NoError(t, err)
	assert.Equal(t, "secret", s)

	c.Wipe()
	assert.False(t, c.Pinned())
}
