package gate

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialExchangeTakeAndRemove(t *testing.T) {
	exchange := NewCredentialExchange()
	fc := NewFormCred(&User{Name: "bob"}, StatusGoodLogin, "/protected/home")
	exchange.Put(fc)

	got, ok := exchange.TakeAndRemove(fc.FormCredID)
	require.True(t, ok)
	assert.Equal(t, StatusGoodLogin, got.Status)
	assert.Equal(t, "/protected/home", got.TargetURL)
	assert.Equal(t, "bob", got.User.Name)

	// Single-use: a second presentation of the same token must not resolve.
	_, ok = exchange.TakeAndRemove(fc.FormCredID)
	assert.False(t, ok)
}

func TestCredentialExchangeMissingToken(t *testing.T) {
	exchange := NewCredentialExchange()

	_, ok := exchange.TakeAndRemove("nope")
	assert.False(t, ok)
}

// TestCredentialExchangeAtMostOnce hammers one token from many goroutines;
// exactly one may observe it.
func TestCredentialExchangeAtMostOnce(t *testing.T) {
	exchange := NewCredentialExchange()
	fc := NewFormCred(nil, StatusBadLogin, "/")
	exchange.Put(fc)

	const workers = 32
	var wg sync.WaitGroup
	found := make(chan struct{}, workers)
	start := make(chan struct{})

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, ok := exchange.TakeAndRemove(fc.FormCredID); ok {
				found <- struct{}{}
			}
		}()
	}
	close(start)
	wg.Wait()
	close(found)

	count := 0
	for range found {
		count++
	}
	assert.Equal(t, 1, count)
}

func TestFormCredTokensAreDistinctScheme(t *testing.T) {
	fc1 := NewFormCred(nil, StatusBadLogin, "")
	fc2 := NewFormCred(nil, StatusBadLogin, "")
	assert.NotEqual(t, fc1.FormCredID, fc2.FormCredID)
	assert.NotEmpty(t, fc1.FormCredID)
}
